package members

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"carehive/internal/domain/access"
	"carehive/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, grantsSvc *access.Service) {
	r.Route("/members", func(mr chi.Router) {
		mr.Post("/", createMemberHandler(svc))
		mr.Get("/", listMembersHandler(svc))

		// Perfil (dueño o médico con profile:read)
		mr.Get("/{memberID}", getMemberHandler(svc, grantsSvc))
		mr.Patch("/{memberID}", updateMemberHandler(svc))
	})

	// Pacientes compartidos conmigo (médico)
	r.Get("/me/patients", listMyPatientsHandler(svc, grantsSvc))
}

type emergencyContactDTO struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

type createMemberRequest struct {
	Name             string              `json:"name"`
	Relationship     string              `json:"relationship"`
	NIC              string              `json:"nic"`
	Phone            string              `json:"phone"`
	BloodGroup       string              `json:"blood_group" enums:"A+,A-,B+,B-,AB+,AB-,O+,O-"`
	HeightCM         float64             `json:"height_cm"`
	WeightKG         float64             `json:"weight_kg"`
	BirthDate        string              `json:"birth_date"` // YYYY-MM-DD opcional
	Allergies        []string            `json:"allergies"`
	Conditions       []string            `json:"conditions"`
	EmergencyContact emergencyContactDTO `json:"emergency_contact"`
}

type updateMemberRequest struct {
	Name             *string              `json:"name"`
	Relationship     *string              `json:"relationship"`
	NIC              *string              `json:"nic"`
	Phone            *string              `json:"phone"`
	BloodGroup       *string              `json:"blood_group"`
	HeightCM         *float64             `json:"height_cm"`
	WeightKG         *float64             `json:"weight_kg"`
	Allergies        *[]string            `json:"allergies"`
	Conditions       *[]string            `json:"conditions"`
	EmergencyContact *emergencyContactDTO `json:"emergency_contact"`
	// birth_date se lee aparte: null limpia la fecha.
}

// MemberResponse es la forma JSON del perfil.
type MemberResponse struct {
	ID               string              `json:"id"`
	OwnerUserID      string              `json:"owner_user_id"`
	Name             string              `json:"name"`
	Relationship     string              `json:"relationship"`
	NIC              string              `json:"nic,omitempty"`
	Phone            string              `json:"phone,omitempty"`
	BloodGroup       string              `json:"blood_group,omitempty"`
	HeightCM         float64             `json:"height_cm,omitempty"`
	WeightKG         float64             `json:"weight_kg,omitempty"`
	BirthDate        *time.Time          `json:"birth_date,omitempty"`
	Allergies        []string            `json:"allergies"`
	Conditions       []string            `json:"conditions"`
	EmergencyContact emergencyContactDTO `json:"emergency_contact"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type sharedMemberResponse struct {
	Member MemberResponse `json:"member"`
	Grant  struct {
		ID     string        `json:"id"`
		Status access.Status `json:"status"`
	} `json:"grant"`
	Scopes []access.Scope `json:"scopes"`
}

// createMemberHandler godoc
// @Summary Registrar familiar
// @Description Registra un familiar de la cuenta. `nic`, si viene, debe tener 12 o 13 dígitos.
// @Tags members
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body createMemberRequest true "Datos del familiar"
// @Success 201 {object} MemberResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Router /members [post]
func createMemberHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createMemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var bd *time.Time
		if strings.TrimSpace(req.BirthDate) != "" {
			t, err := time.Parse("2006-01-02", req.BirthDate)
			if err != nil {
				http.Error(w, "birth_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			bd = &t
		}

		m, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:             req.Name,
			Relationship:     req.Relationship,
			NIC:              req.NIC,
			Phone:            req.Phone,
			BloodGroup:       req.BloodGroup,
			HeightCM:         req.HeightCM,
			WeightKG:         req.WeightKG,
			BirthDate:        bd,
			Allergies:        req.Allergies,
			Conditions:       req.Conditions,
			EmergencyContact: EmergencyContact(req.EmergencyContact),
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, ToResponse(m))
	}
}

// listMembersHandler godoc
// @Summary Listar familiares propios
// @Tags members
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} MemberResponse
// @Failure 401 {string} string "unauthorized"
// @Router /members [get]
func listMembersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]MemberResponse, 0, len(items))
		for _, m := range items {
			out = append(out, ToResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getMemberHandler godoc
// @Summary Perfil de un familiar
// @Description El dueño siempre puede verlo. Un médico necesita un grant activo con `profile:read`.
// @Tags members
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param memberID path string true "ID del familiar"
// @Success 200 {object} MemberResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "member not found"
// @Router /members/{memberID} [get]
func getMemberHandler(svc *Service, grantsSvc *access.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		memberID := chi.URLParam(r, "memberID")
		m, err := svc.GetByID(r.Context(), memberID)
		if err != nil {
			http.Error(w, "member not found", http.StatusNotFound)
			return
		}

		if !grantsSvc.Allowed(r.Context(), m.OwnerUserID, memberID, claims.UserID, access.ScopeProfileRead) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		writeJSON(w, http.StatusOK, ToResponse(m))
	}
}

// updateMemberHandler godoc
// @Summary Actualizar perfil de un familiar
// @Description PATCH parcial, solo el dueño. `birth_date: null` limpia la fecha.
// @Tags members
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param memberID path string true "ID del familiar"
// @Param payload body updateMemberRequest true "Campos a cambiar"
// @Success 200 {object} MemberResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "member not found"
// @Router /members/{memberID} [patch]
func updateMemberHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// Primero a map para detectar presencia de birth_date.
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var req updateMemberRequest
		b, _ := json.Marshal(raw)
		if err := json.Unmarshal(b, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var bd OptionalDate
		if v, exists := raw["birth_date"]; exists {
			bd.Present = true
			if string(v) != "null" {
				var s string
				if err := json.Unmarshal(v, &s); err != nil {
					http.Error(w, "birth_date must be YYYY-MM-DD or null", http.StatusBadRequest)
					return
				}
				t, err := time.Parse("2006-01-02", s)
				if err != nil {
					http.Error(w, "birth_date must be YYYY-MM-DD or null", http.StatusBadRequest)
					return
				}
				bd.Value = &t
			}
		}

		var ec *EmergencyContact
		if req.EmergencyContact != nil {
			v := EmergencyContact(*req.EmergencyContact)
			ec = &v
		}

		updated, err := svc.UpdateProfile(r.Context(), chi.URLParam(r, "memberID"), claims.UserID, UpdateProfileInput{
			Name:             req.Name,
			Relationship:     req.Relationship,
			NIC:              req.NIC,
			Phone:            req.Phone,
			BloodGroup:       req.BloodGroup,
			HeightCM:         req.HeightCM,
			WeightKG:         req.WeightKG,
			BirthDate:        bd,
			Allergies:        req.Allergies,
			Conditions:       req.Conditions,
			EmergencyContact: ec,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "member not found", http.StatusNotFound)
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, ToResponse(updated))
	}
}

// listMyPatientsHandler godoc
// @Summary Pacientes compartidos conmigo
// @Description Familiares con grant activo y `profile:read` para el usuario actual.
// @Tags members
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} sharedMemberResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/patients [get]
func listMyPatientsHandler(svc *Service, grantsSvc *access.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		grants, err := grantsSvc.ListByGrantee(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		seen := map[string]struct{}{}
		out := make([]sharedMemberResponse, 0)
		for _, g := range grants {
			if g.Status != access.StatusActive || !access.HasScope(g, access.ScopeProfileRead) {
				continue
			}
			if _, ok := seen[g.MemberID]; ok {
				continue
			}
			seen[g.MemberID] = struct{}{}

			m, err := svc.GetByID(r.Context(), g.MemberID)
			if err != nil {
				// grant huérfano
				continue
			}

			item := sharedMemberResponse{Member: ToResponse(m), Scopes: g.Scopes}
			item.Grant.ID = g.ID
			item.Grant.Status = g.Status
			out = append(out, item)
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func ToResponse(m Member) MemberResponse {
	allergies := m.Allergies
	if allergies == nil {
		allergies = []string{}
	}
	conditions := m.Conditions
	if conditions == nil {
		conditions = []string{}
	}
	return MemberResponse{
		ID:               m.ID,
		OwnerUserID:      m.OwnerUserID,
		Name:             m.Name,
		Relationship:     string(m.Relationship),
		NIC:              m.NIC,
		Phone:            m.Phone,
		BloodGroup:       string(m.BloodGroup),
		HeightCM:         m.HeightCM,
		WeightKG:         m.WeightKG,
		BirthDate:        m.BirthDate,
		Allergies:        allergies,
		Conditions:       conditions,
		EmergencyContact: emergencyContactDTO(m.EmergencyContact),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
