package router

import (
	"database/sql"
	"net/http"
	"time"

	_ "carehive/docs"
	mem "carehive/internal/adapters/storage/memory"
	mdb "carehive/internal/adapters/storage/mongodb"
	pg "carehive/internal/adapters/storage/postgres"
	"carehive/internal/domain/access"
	"carehive/internal/domain/appointments"
	"carehive/internal/domain/doctor"
	"carehive/internal/domain/medicines"
	"carehive/internal/domain/members"
	"carehive/internal/domain/records"
	"carehive/internal/middleware"
	"carehive/internal/platform/logger"
	"carehive/internal/platform/metrics"
	"carehive/internal/ports/auth"
	"carehive/internal/ports/notify"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Store: DB (Postgres) tiene prioridad sobre Mongo; sin ninguno, in-memory.
	DB    *sql.DB
	Mongo *mongo.Database

	Logger    logger.Logger
	Metrics   *metrics.Metrics
	Scheduler notify.Scheduler // nil = no se agendan recordatorios

	// Location define el "día" de dosis y citas. nil = time.Local.
	Location *time.Location
}

// App expone el handler y los servicios que el proceso necesita fuera del
// HTTP (el refresher usa Medicines).
type App struct {
	Handler   http.Handler
	Medicines *medicines.Service
}

type repos struct {
	members      members.Repository
	grants       access.Repository
	records      records.Repository
	appointments appointments.Repository
	medicines    medicines.Repository
}

func newRepos(opts Options) repos {
	switch {
	case opts.DB != nil:
		return repos{
			members:      pg.NewMembersRepo(opts.DB),
			grants:       pg.NewAccessGrantsRepo(opts.DB),
			records:      pg.NewRecordsRepo(opts.DB),
			appointments: pg.NewAppointmentsRepo(opts.DB),
			medicines:    pg.NewMedicinesRepo(opts.DB),
		}
	case opts.Mongo != nil:
		return repos{
			members:      mdb.NewMembersRepo(opts.Mongo),
			grants:       mdb.NewAccessGrantsRepo(opts.Mongo),
			records:      mdb.NewRecordsRepo(opts.Mongo),
			appointments: mdb.NewAppointmentsRepo(opts.Mongo),
			medicines:    mdb.NewMedicinesRepo(opts.Mongo),
		}
	default:
		return repos{
			members:      mem.NewMemberRepo(),
			grants:       mem.NewGrantRepo(),
			records:      mem.NewRecordRepo(),
			appointments: mem.NewAppointmentRepo(),
			medicines:    mem.NewMedicineRepo(),
		}
	}
}

func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	met := opts.Metrics
	if met == nil {
		met = metrics.New()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log, met))
	r.Use(middleware.Recover(log))

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", met.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	rp := newRepos(opts)

	// Services por módulo
	membersSvc := members.NewService(rp.members)
	grantsSvc := access.NewService(rp.grants, log)
	recordsSvc := records.NewService(rp.records)
	appointmentsSvc := appointments.NewService(rp.appointments, loc)
	medicinesSvc := medicines.NewService(rp.medicines, medicines.Deps{
		Members:   membersSvc,
		Scheduler: opts.Scheduler,
		Metrics:   met,
		Log:       log,
		Location:  loc,
	})
	doctorSvc := doctor.NewService(membersSvc, grantsSvc, recordsSvc, appointmentsSvc, medicinesSvc)

	// Rutas por módulo
	members.RegisterRoutes(r, membersSvc, grantsSvc)
	access.RegisterRoutes(r, grantsSvc, membersSvc)
	records.RegisterRoutes(r, recordsSvc, membersSvc, grantsSvc)
	appointments.RegisterRoutes(r, appointmentsSvc, membersSvc, grantsSvc)
	medicines.RegisterRoutes(r, medicinesSvc, membersSvc, grantsSvc)
	doctor.RegisterRoutes(r, doctorSvc)

	return &App{Handler: r, Medicines: medicinesSvc}
}

func NewRouter(opts Options) http.Handler {
	return New(opts).Handler
}
