package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"carehive/internal/domain/access"
	"carehive/internal/domain/members"
	"carehive/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, membersSvc *members.Service, grantsSvc *access.Service) {
	r.Route("/members/{memberID}/appointments", func(ar chi.Router) {
		ar.Post("/", createAppointmentHandler(svc, membersSvc))
		ar.Get("/", listAppointmentsHandler(svc, membersSvc, grantsSvc))
		ar.Patch("/{appointmentID}", updateAppointmentHandler(svc, membersSvc))
	})
}

type createAppointmentRequest struct {
	Doctor string `json:"doctor"`
	Reason string `json:"reason"`
	Date   string `json:"date"` // YYYY-MM-DD
	Time   string `json:"time"` // "10:30 AM"
	Notes  string `json:"notes"`
	Type   Type   `json:"type" enums:"checkup,follow-up,emergency,routine"`
	Status Status `json:"status" enums:"scheduled,upcoming,completed,cancelled,done"`
}

type updateAppointmentRequest struct {
	Status *Status `json:"status"`
	Notes  *string `json:"notes"`
}

// AppointmentResponse es la forma JSON de una cita.
type AppointmentResponse struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	Doctor      string    `json:"doctor"`
	Reason      string    `json:"reason,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Notes       string    `json:"notes,omitempty"`
	Status      Status    `json:"status"`
	Type        Type      `json:"type"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// createAppointmentHandler godoc
// @Summary Agendar cita
// @Description Solo el dueño del familiar. `doctor`, `date` y `time` son obligatorios.
// @Tags appointments
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param memberID path string true "ID del familiar"
// @Param payload body createAppointmentRequest true "Datos de la cita"
// @Success 201 {object} AppointmentResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "member not found"
// @Router /members/{memberID}/appointments [post]
func createAppointmentHandler(svc *Service, membersSvc *members.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		memberID := chi.URLParam(r, "memberID")
		m, err := membersSvc.GetByID(r.Context(), memberID)
		if err != nil {
			http.Error(w, "member not found", http.StatusNotFound)
			return
		}
		if m.OwnerUserID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req createAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		a, err := svc.Create(r.Context(), memberID, claims.UserID, CreateInput(req))
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, ToResponse(a))
	}
}

// listAppointmentsHandler godoc
// @Summary Listar citas de un familiar
// @Description El dueño siempre puede verlas. Un médico necesita `appointments:read`.
// @Tags appointments
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param memberID path string true "ID del familiar"
// @Success 200 {array} AppointmentResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "member not found"
// @Router /members/{memberID}/appointments [get]
func listAppointmentsHandler(svc *Service, membersSvc *members.Service, grantsSvc *access.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		memberID := chi.URLParam(r, "memberID")
		m, err := membersSvc.GetByID(r.Context(), memberID)
		if err != nil {
			http.Error(w, "member not found", http.StatusNotFound)
			return
		}
		if !grantsSvc.Allowed(r.Context(), m.OwnerUserID, memberID, claims.UserID, access.ScopeAppointmentsRead) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		items, err := svc.ListByMember(r.Context(), memberID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]AppointmentResponse, 0, len(items))
		for _, a := range items {
			out = append(out, ToResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// updateAppointmentHandler godoc
// @Summary Actualizar cita
// @Description Cambia estado y/o notas. Solo el dueño del familiar.
// @Tags appointments
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param memberID path string true "ID del familiar"
// @Param appointmentID path string true "ID de la cita"
// @Param payload body updateAppointmentRequest true "Campos a cambiar"
// @Success 200 {object} AppointmentResponse
// @Failure 400 {string} string "invalid json / estado desconocido"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "appointment not found"
// @Router /members/{memberID}/appointments/{appointmentID} [patch]
func updateAppointmentHandler(svc *Service, membersSvc *members.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		memberID := chi.URLParam(r, "memberID")
		m, err := membersSvc.GetByID(r.Context(), memberID)
		if err != nil {
			http.Error(w, "member not found", http.StatusNotFound)
			return
		}
		if m.OwnerUserID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req updateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		a, err := svc.Update(r.Context(), memberID, chi.URLParam(r, "appointmentID"), UpdateInput(req))
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "appointment not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, ToResponse(a))
	}
}

func ToResponse(a Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		MemberID:    a.MemberID,
		Doctor:      a.Doctor,
		Reason:      a.Reason,
		ScheduledAt: a.ScheduledAt,
		Date:        a.ScheduledAt.Format("2006-01-02"),
		Time:        a.Time,
		Notes:       a.Notes,
		Status:      a.Status,
		Type:        a.Type,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
