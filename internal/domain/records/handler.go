package records

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carehive/internal/domain/access"
	"carehive/internal/domain/members"
	"carehive/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, membersSvc *members.Service, grantsSvc *access.Service) {
	r.Route("/members/{memberID}/records", func(rr chi.Router) {
		rr.Post("/", createRecordHandler(svc, membersSvc, grantsSvc))
		rr.Get("/", listRecordsHandler(svc, membersSvc, grantsSvc))
		rr.Post("/{recordID}/void", voidRecordHandler(svc, membersSvc))
	})
}

type createRecordRequest struct {
	Type        RecordType `json:"type" enums:"report,prescription,note,lab_result"`
	Name        string     `json:"name"`
	Date        string     `json:"date"` // YYYY-MM-DD, opcional (hoy)
	Description string     `json:"description"`
	DoctorName  string     `json:"doctor_name"`
	FileURL     string     `json:"file_url"`
	Tags        []string   `json:"tags"`
}

// RecordResponse es la forma JSON de un registro; la usa también el
// dashboard del médico.
type RecordResponse struct {
	ID          string     `json:"id"`
	MemberID    string     `json:"member_id"`
	Type        RecordType `json:"type"`
	Name        string     `json:"name"`
	Date        string     `json:"date"`
	Description string     `json:"description,omitempty"`
	DoctorName  string     `json:"doctor_name,omitempty"`
	FileURL     string     `json:"file_url,omitempty"`
	Tags        []string   `json:"tags"`
	AuthorType  AuthorType `json:"author_type"`
	AuthorID    string     `json:"author_id"`
	RecordedAt  time.Time  `json:"recorded_at"`
	Status      Status     `json:"status"`
}

// createRecordHandler godoc
// @Summary Crear registro médico
// @Description El dueño puede crear cualquier tipo. Un médico con grant activo y `notes:create` solo puede crear `note`. Una receta exige `doctor_name` y `description`; un informe exige `description` y `file_url`.
// @Tags records
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param memberID path string true "ID del familiar"
// @Param payload body createRecordRequest true "Datos del registro"
// @Success 201 {object} RecordResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "member not found"
// @Router /members/{memberID}/records [post]
func createRecordHandler(svc *Service, membersSvc *members.Service, grantsSvc *access.Service) http.HandlerFunc {
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

		var req createRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		author := Author{Type: AuthorOwner, ID: claims.UserID}
		if m.OwnerUserID != claims.UserID {
			if req.Type != TypeNote || !grantsSvc.Allowed(r.Context(), m.OwnerUserID, memberID, claims.UserID, access.ScopeNotesCreate) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			author.Type = AuthorDoctor
		}

		var date time.Time
		if strings.TrimSpace(req.Date) != "" {
			date, err = time.ParseInLocation("2006-01-02", req.Date, time.Local)
			if err != nil {
				http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
		}

		rec, err := svc.Create(r.Context(), memberID, author, CreateInput{
			Type:        req.Type,
			Name:        req.Name,
			Date:        date,
			Description: req.Description,
			DoctorName:  req.DoctorName,
			FileURL:     req.FileURL,
			Tags:        req.Tags,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, ToResponse(rec))
	}
}

// listRecordsHandler godoc
// @Summary Listar registros de un familiar
// @Description El dueño siempre puede verlos. Un médico necesita `records:read`.
// @Tags records
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param memberID path string true "ID del familiar"
// @Param limit query int false "Máximo (1-200). Por defecto 50"
// @Param types query string false "CSV de tipos (ej: report,prescription)"
// @Param from query string false "Fecha mínima (YYYY-MM-DD)"
// @Param to query string false "Fecha máxima (YYYY-MM-DD)"
// @Param q query string false "Texto libre en nombre/descripción/médico"
// @Success 200 {array} RecordResponse
// @Failure 400 {string} string "Parámetros de filtro inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "member not found"
// @Router /members/{memberID}/records [get]
func listRecordsHandler(svc *Service, membersSvc *members.Service, grantsSvc *access.Service) http.HandlerFunc {
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
		if !grantsSvc.Allowed(r.Context(), m.OwnerUserID, memberID, claims.UserID, access.ScopeRecordsRead) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := svc.ListByMember(r.Context(), memberID, filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]RecordResponse, 0, len(items))
		for _, rec := range items {
			out = append(out, ToResponse(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// voidRecordHandler godoc
// @Summary Anular (void) un registro
// @Description Solo el dueño del familiar.
// @Tags records
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param memberID path string true "ID del familiar"
// @Param recordID path string true "ID del registro"
// @Success 200 {object} RecordResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "record not found"
// @Router /members/{memberID}/records/{recordID}/void [post]
func voidRecordHandler(svc *Service, membersSvc *members.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		memberID := chi.URLParam(r, "memberID")
		recordID := chi.URLParam(r, "recordID")

		m, err := membersSvc.GetByID(r.Context(), memberID)
		if err != nil {
			http.Error(w, "member not found", http.StatusNotFound)
			return
		}
		// Permisos primero, para no filtrar si el registro existe.
		if m.OwnerUserID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		rec, err := svc.GetByID(r.Context(), recordID)
		if err != nil || rec.MemberID != memberID {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}

		updated, err := svc.Void(r.Context(), recordID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "record not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, ToResponse(updated))
	}
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()

	filter := ListFilter{Limit: DefaultListLimit}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= MaxListLimit {
			filter.Limit = n
		}
	}

	if v := strings.TrimSpace(q.Get("types")); v != "" {
		for _, p := range strings.Split(v, ",") {
			t := RecordType(strings.TrimSpace(p))
			if t == "" {
				continue
			}
			if !t.Valid() {
				return ListFilter{}, errors.New("unknown record type " + string(t))
			}
			filter.Types = append(filter.Types, t)
		}
	}

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return ListFilter{}, errors.New("from must be YYYY-MM-DD")
		}
		filter.From = &t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return ListFilter{}, errors.New("to must be YYYY-MM-DD")
		}
		// "to" incluye todo el día
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.To = &end
	}

	filter.Query = strings.TrimSpace(q.Get("q"))
	return filter, nil
}

func ToResponse(rec Record) RecordResponse {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return RecordResponse{
		ID:          rec.ID,
		MemberID:    rec.MemberID,
		Type:        rec.Type,
		Name:        rec.Name,
		Date:        rec.Date.Format("2006-01-02"),
		Description: rec.Description,
		DoctorName:  rec.DoctorName,
		FileURL:     rec.FileURL,
		Tags:        tags,
		AuthorType:  rec.Author.Type,
		AuthorID:    rec.Author.ID,
		RecordedAt:  rec.RecordedAt,
		Status:      rec.Status,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
