package doctor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"carehive/internal/domain/access"
	"carehive/internal/domain/appointments"
	"carehive/internal/domain/medicines"
	"carehive/internal/domain/members"
	"carehive/internal/domain/records"
	"carehive/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/doctor/dashboard", dashboardHandler(svc))

	r.Route("/patients", func(pr chi.Router) {
		pr.Get("/search", searchPatientsHandler(svc))
		pr.Get("/{memberID}", getPatientHandler(svc))
		pr.Post("/{memberID}/notes", addNoteHandler(svc))
	})
}

type upcomingResponse struct {
	appointments.AppointmentResponse
	PatientName string `json:"patient_name"`
}

type dashboardResponse struct {
	PatientCount int                `json:"patient_count"`
	Upcoming     []upcomingResponse `json:"upcoming_appointments"`
}

type patientResponse struct {
	Profile members.MemberResponse `json:"profile"`
	Age     int                    `json:"age"`
	Scopes  []access.Scope         `json:"scopes"`

	Reports       []records.RecordResponse           `json:"reports,omitempty"`
	Prescriptions []records.RecordResponse           `json:"prescriptions,omitempty"`
	Notes         []records.RecordResponse           `json:"notes,omitempty"`
	Timeline      []timelineEntryResponse            `json:"timeline,omitempty"`
	Appointments  []appointments.AppointmentResponse `json:"appointments,omitempty"`

	Compliance *medicines.MemberSummaryResponse `json:"compliance,omitempty"`
}

type timelineEntryResponse struct {
	RecordID string             `json:"record_id"`
	Type     records.RecordType `json:"type"`
	Date     string             `json:"date"`
	Label    string             `json:"label"`
}

type addNoteRequest struct {
	Text string `json:"text"`
}

// dashboardHandler godoc
// @Summary Dashboard del médico
// @Description Cantidad de pacientes con grant activo y las próximas 5 citas entre ellos.
// @Tags doctor
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} dashboardResponse
// @Failure 401 {string} string "unauthorized"
// @Router /doctor/dashboard [get]
func dashboardHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := svc.Dashboard(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := dashboardResponse{PatientCount: d.PatientCount, Upcoming: make([]upcomingResponse, 0, len(d.Upcoming))}
		for _, u := range d.Upcoming {
			out.Upcoming = append(out.Upcoming, upcomingResponse{
				AppointmentResponse: appointments.ToResponse(u.Appointment),
				PatientName:         u.PatientName,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// searchPatientsHandler godoc
// @Summary Buscar pacientes
// @Description Busca por ID, nombre o teléfono entre los familiares propios y los compartidos conmigo.
// @Tags doctor
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param q query string false "Texto a buscar"
// @Success 200 {array} members.MemberResponse
// @Failure 401 {string} string "unauthorized"
// @Router /patients/search [get]
func searchPatientsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.Search(r.Context(), claims.UserID, r.URL.Query().Get("q"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]members.MemberResponse, 0, len(items))
		for _, m := range items {
			out = append(out, members.ToResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getPatientHandler godoc
// @Summary Perfil completo del paciente
// @Description Perfil, informes, recetas, notas, línea de tiempo, citas y cumplimiento de medicinas. Cada sección aparece solo si el grant tiene el scope correspondiente (el dueño ve todo).
// @Tags doctor
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param memberID path string true "ID del familiar"
// @Success 200 {object} patientResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{memberID} [get]
func getPatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		v, err := svc.Patient(r.Context(), claims.UserID, chi.URLParam(r, "memberID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(v))
	}
}

// addNoteHandler godoc
// @Summary Agregar nota del médico
// @Description Crea un registro `note` llamado "Doctor Note". Requiere `notes:create`.
// @Tags doctor
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param memberID path string true "ID del familiar"
// @Param payload body addNoteRequest true "Texto de la nota"
// @Success 201 {object} records.RecordResponse
// @Failure 400 {string} string "text required"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{memberID}/notes [post]
func addNoteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req addNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		rec, err := svc.AddNote(r.Context(), claims.UserID, chi.URLParam(r, "memberID"), req.Text)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, records.ToResponse(rec))
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, records.ErrInvalidInput):
		http.Error(w, "text required", http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "patient not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toPatientResponse(v PatientView) patientResponse {
	out := patientResponse{
		Profile: members.ToResponse(v.Member),
		Age:     v.Age,
		Scopes:  v.Scopes,
	}
	if v.Reports != nil {
		out.Reports = toRecordResponses(v.Reports)
		out.Prescriptions = toRecordResponses(v.Prescriptions)
		out.Notes = toRecordResponses(v.Notes)
		out.Timeline = make([]timelineEntryResponse, 0, len(v.Timeline))
		for _, e := range v.Timeline {
			out.Timeline = append(out.Timeline, timelineEntryResponse(e))
		}
	}
	if v.Appointments != nil {
		out.Appointments = make([]appointments.AppointmentResponse, 0, len(v.Appointments))
		for _, a := range v.Appointments {
			out.Appointments = append(out.Appointments, appointments.ToResponse(a))
		}
	}
	if v.Compliance != nil {
		c := medicines.ToMemberSummaryResponse(*v.Compliance)
		out.Compliance = &c
	}
	return out
}

func toRecordResponses(in []records.Record) []records.RecordResponse {
	out := make([]records.RecordResponse, 0, len(in))
	for _, rec := range in {
		out = append(out, records.ToResponse(rec))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
