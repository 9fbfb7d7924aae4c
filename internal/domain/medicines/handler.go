package medicines

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"carehive/internal/domain/access"
	"carehive/internal/domain/doses"
	"carehive/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, owners MemberLookup, grantsSvc *access.Service) {
	r.Route("/medicines", func(mr chi.Router) {
		mr.Get("/", listMedicinesHandler(svc, owners, grantsSvc))
		mr.Post("/", createMedicineHandler(svc))

		mr.Get("/status", statusHandler(svc))
		mr.Get("/summary", summaryHandler(svc))

		mr.Post("/{medicineID}/taken", markHandler(svc, ActionTaken))
		mr.Post("/{medicineID}/skip", markHandler(svc, ActionSkip))
	})
}

type createMedicineRequest struct {
	Name     string   `json:"name"`
	Relation string   `json:"relation"` // ID del familiar
	Times    []string `json:"times"`    // ["8:00AM", "8:00PM"]
	Quantity int      `json:"quantity"` // días de tratamiento
}

// MedicineResponse es la forma JSON de una medicina.
type MedicineResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Relation    string     `json:"relation"`
	Times       []string   `json:"times"`
	Quantity    int        `json:"quantity"`
	Taken       int        `json:"taken"`
	Skipped     int        `json:"skipped"`
	LastTakenAt *time.Time `json:"last_taken_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type doseStatusResponse struct {
	MedicineID  string       `json:"medicine_id"`
	Name        string       `json:"name"`
	Relation    string       `json:"relation"`
	Status      doses.Status `json:"status" enums:"Due,Next,Taken"`
	CurrentTime string       `json:"current_time,omitempty"`
	TakenToday  int          `json:"taken_today"`
	ReminderAt  *time.Time   `json:"reminder_at,omitempty"`
}

// MedicineSummaryResponse es el resumen de un tratamiento.
type MedicineSummaryResponse struct {
	MedicineID       string  `json:"medicine_id"`
	Name             string  `json:"name"`
	Quantity         int     `json:"quantity"`
	TimesPerDay      int     `json:"times_per_day"`
	TotalDoses       int     `json:"total_doses"`
	Taken            int     `json:"taken"`
	Skipped          int     `json:"skipped"`
	Remaining        int     `json:"remaining"`
	RemainingPercent float64 `json:"remaining_percent"`
	Low              bool    `json:"low"`
	Compliance       float64 `json:"compliance"`
}

// MemberSummaryResponse agrupa los tratamientos de un familiar.
type MemberSummaryResponse struct {
	Relation   string                    `json:"relation"`
	Medicines  int                       `json:"medicines"`
	Taken      int                       `json:"taken"`
	Skipped    int                       `json:"skipped"`
	Compliance float64                   `json:"compliance"`
	Items      []MedicineSummaryResponse `json:"items"`
}

// listMedicinesHandler godoc
// @Summary Listar medicinas
// @Description Sin `relation` devuelve las medicinas de la cuenta. Con `relation` devuelve las de ese familiar; un médico necesita `medicines:read`.
// @Tags medicines
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param relation query string false "ID del familiar"
// @Success 200 {array} MedicineResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "member not found"
// @Router /medicines [get]
func listMedicinesHandler(svc *Service, owners MemberLookup, grantsSvc *access.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var (
			items []Medicine
			err   error
		)
		if relation := strings.TrimSpace(r.URL.Query().Get("relation")); relation != "" {
			ownerID, lerr := owners.OwnerOf(r.Context(), relation)
			if lerr != nil {
				http.Error(w, "member not found", http.StatusNotFound)
				return
			}
			if !grantsSvc.Allowed(r.Context(), ownerID, relation, claims.UserID, access.ScopeMedicinesRead) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			items, err = svc.ListByRelation(r.Context(), relation)
		} else {
			items, err = svc.ListByOwner(r.Context(), claims.UserID)
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]MedicineResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicineResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// createMedicineHandler godoc
// @Summary Agregar medicina
// @Description `relation` debe ser un familiar propio. `times` no puede estar vacío ni tener entradas en blanco; `quantity` > 0.
// @Tags medicines
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body createMedicineRequest true "Datos de la medicina"
// @Success 201 {object} MedicineResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /medicines [post]
func createMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createMedicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Create(r.Context(), claims.UserID, CreateInput(req))
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toMedicineResponse(m))
	}
}

// statusHandler godoc
// @Summary Tablero de dosis (Due / Next / Taken)
// @Description Evalúa todas las medicinas de la cuenta con el mismo instante (Due primero, después Next y Taken) y agenda los recordatorios de las próximas dosis (5 minutos antes). La app lo llama al enfocar la pantalla.
// @Tags medicines
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} doseStatusResponse
// @Failure 401 {string} string "unauthorized"
// @Router /medicines/status [get]
func statusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items := svc.Status(r.Context(), claims.UserID)
		SortBoard(items)
		out := make([]doseStatusResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toDoseStatusResponse(it))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// markHandler godoc
// @Summary Marcar dosis tomada / salteada
// @Description Suma 1 al contador correspondiente y fija `last_taken_at` en ahora. Devuelve el estado recalculado.
// @Tags medicines
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param medicineID path string true "ID de la medicina"
// @Success 200 {object} doseStatusResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "medicine not found"
// @Failure 500 {string} string "could not update medicine"
// @Router /medicines/{medicineID}/taken [post]
// @Router /medicines/{medicineID}/skip [post]
func markHandler(svc *Service, action Action) http.HandlerFunc {
	mark := svc.MarkTaken
	if action == ActionSkip {
		mark = svc.MarkSkip
	}
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		it, err := mark(r.Context(), claims.UserID, chi.URLParam(r, "medicineID"))
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				http.Error(w, "medicine not found", http.StatusNotFound)
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "could not update medicine", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toDoseStatusResponse(it))
	}
}

// summaryHandler godoc
// @Summary Resumen de medicinas por familiar
// @Description Total de dosis = quantity × horas por día; restante = total − tomadas; `low` con 3 o menos; compliance = tomadas / (tomadas + salteadas).
// @Tags medicines
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param relation query string false "ID del familiar"
// @Success 200 {array} MemberSummaryResponse
// @Failure 401 {string} string "unauthorized"
// @Router /medicines/summary [get]
func summaryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.Summary(r.Context(), claims.UserID, r.URL.Query().Get("relation"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]MemberSummaryResponse, 0, len(items))
		for _, ms := range items {
			out = append(out, ToMemberSummaryResponse(ms))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toMedicineResponse(m Medicine) MedicineResponse {
	times := m.Times
	if times == nil {
		times = []string{}
	}
	return MedicineResponse{
		ID:          m.ID,
		Name:        m.Name,
		Relation:    m.Relation,
		Times:       times,
		Quantity:    m.Quantity,
		Taken:       m.Taken,
		Skipped:     m.Skipped,
		LastTakenAt: m.LastTakenAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toDoseStatusResponse(it BoardItem) doseStatusResponse {
	return doseStatusResponse{
		MedicineID:  it.Medicine.ID,
		Name:        it.Medicine.Name,
		Relation:    it.Medicine.Relation,
		Status:      it.Status.Status,
		CurrentTime: it.Status.CurrentTime,
		TakenToday:  it.Status.TakenToday,
		ReminderAt:  it.ReminderAt,
	}
}

func ToMemberSummaryResponse(ms MemberSummary) MemberSummaryResponse {
	items := make([]MedicineSummaryResponse, 0, len(ms.Items))
	for _, it := range ms.Items {
		items = append(items, MedicineSummaryResponse(it))
	}
	return MemberSummaryResponse{
		Relation:   ms.Relation,
		Medicines:  ms.Medicines,
		Taken:      ms.Taken,
		Skipped:    ms.Skipped,
		Compliance: ms.Compliance,
		Items:      items,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
