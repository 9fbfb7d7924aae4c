package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"carehive/internal/domain/access"
	"carehive/internal/ports/notify"
	"carehive/internal/router"
)

type recordingScheduler struct {
	mu  sync.Mutex
	got []notify.Reminder
}

func (s *recordingScheduler) Schedule(ctx context.Context, r notify.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, r)
	return nil
}

func (s *recordingScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestHTTP_Health(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	st, body := doReq(t, ts.URL, "GET", "/health", "", nil)
	if st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("expected 200 ok, got %d body=%s", st, string(body))
	}
}

func TestHTTP_RequiresIdentity(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	for _, p := range []string{"/members", "/medicines/status", "/doctor/dashboard", "/me/grants"} {
		st, _ := doReq(t, ts.URL, "GET", p, "", nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without identity, got %d", p, st)
		}
	}
}

func TestHTTP_EndToEnd_MedicineDoses(t *testing.T) {
	sched := &recordingScheduler{}
	ts := httptest.NewServer(router.NewRouter(router.Options{Scheduler: sched}))
	defer ts.Close()

	ownerID := "family-1"
	memberID := createMember(t, ts.URL, ownerID, map[string]any{
		"name":         "Amma",
		"relationship": "Mother",
		"blood_group":  "O+",
	})

	// 12:00AM siempre quedó atrás: Due hasta que se marque
	medID := createMedicine(t, ts.URL, ownerID, map[string]any{
		"name":     "Paracetamol",
		"relation": memberID,
		"times":    []string{"12:00AM"},
		"quantity": 5,
	})

	// 1) Tablero: Due
	{
		st, body := doReq(t, ts.URL, "GET", "/medicines/status", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 status, got %d body=%s", st, string(body))
		}
		var items []struct {
			MedicineID  string `json:"medicine_id"`
			Status      string `json:"status"`
			CurrentTime string `json:"current_time"`
		}
		_ = json.Unmarshal(body, &items)
		if len(items) != 1 || items[0].MedicineID != medID || items[0].Status != "Due" || items[0].CurrentTime != "12:00AM" {
			t.Fatalf("expected one Due 12:00AM item, got %s", string(body))
		}
	}

	// 2) Otra cuenta no puede marcar
	{
		st, _ := doReq(t, ts.URL, "POST", "/medicines/"+medID+"/taken", "family-2", nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 mark by other account, got %d", st)
		}
	}

	// 3) Skip no mueve el puntero: sigue Due
	{
		st, body := doReq(t, ts.URL, "POST", "/medicines/"+medID+"/skip", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 skip, got %d body=%s", st, string(body))
		}
		if !strings.Contains(string(body), `"status":"Due"`) {
			t.Fatalf("expected Due after skip, got %s", string(body))
		}
	}

	// 4) Taken: la única dosis del día queda atendida
	{
		st, body := doReq(t, ts.URL, "POST", "/medicines/"+medID+"/taken", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 taken, got %d body=%s", st, string(body))
		}
		var it struct {
			Status     string `json:"status"`
			TakenToday int    `json:"taken_today"`
		}
		_ = json.Unmarshal(body, &it)
		if it.Status != "Taken" || it.TakenToday != 1 {
			t.Fatalf("expected Taken with taken_today=1, got %s", string(body))
		}
	}

	// 5) Resumen: 5 dosis totales, 1 tomada, 1 salteada
	{
		st, body := doReq(t, ts.URL, "GET", "/medicines/summary", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 summary, got %d body=%s", st, string(body))
		}
		var out []struct {
			Relation   string  `json:"relation"`
			Taken      int     `json:"taken"`
			Skipped    int     `json:"skipped"`
			Compliance float64 `json:"compliance"`
			Items      []struct {
				TotalDoses int `json:"total_doses"`
				Remaining  int `json:"remaining"`
			} `json:"items"`
		}
		_ = json.Unmarshal(body, &out)
		if len(out) != 1 || out[0].Relation != memberID || out[0].Taken != 1 || out[0].Skipped != 1 || out[0].Compliance != 0.5 {
			t.Fatalf("unexpected summary %s", string(body))
		}
		if len(out[0].Items) != 1 || out[0].Items[0].TotalDoses != 5 || out[0].Items[0].Remaining != 4 {
			t.Fatalf("unexpected item summary %s", string(body))
		}
	}

	// 6) Métricas expuestas
	{
		st, body := doReq(t, ts.URL, "GET", "/metrics", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 metrics, got %d", st)
		}
		for _, want := range []string{
			`carehive_dose_actions_total{action="taken"} 1`,
			`carehive_dose_actions_total{action="skipped"} 1`,
			"carehive_refresh_passes_total",
		} {
			if !strings.Contains(string(body), want) {
				t.Fatalf("metrics missing %q", want)
			}
		}
	}
}

func TestHTTP_StatusSchedulesReminderForNextDose(t *testing.T) {
	now := time.Now()
	if now.Hour() == 23 && now.Minute() >= 50 {
		t.Skip("too close to midnight for an 11:59PM dose")
	}

	sched := &recordingScheduler{}
	ts := httptest.NewServer(router.NewRouter(router.Options{Scheduler: sched}))
	defer ts.Close()

	ownerID := "family-1"
	memberID := createMember(t, ts.URL, ownerID, map[string]any{"name": "Me", "relationship": "Myself"})
	createMedicine(t, ts.URL, ownerID, map[string]any{
		"name":     "Metformin",
		"relation": memberID,
		"times":    []string{"11:59PM"},
		"quantity": 30,
	})

	st, body := doReq(t, ts.URL, "GET", "/medicines/status", ownerID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 status, got %d body=%s", st, string(body))
	}
	if !strings.Contains(string(body), `"status":"Next"`) || !strings.Contains(string(body), `"reminder_at"`) {
		t.Fatalf("expected Next with reminder, got %s", string(body))
	}
	if sched.count() != 1 {
		t.Fatalf("expected 1 scheduled reminder, got %d", sched.count())
	}
}

func TestHTTP_StatusBoard_DueBeforeNext(t *testing.T) {
	now := time.Now()
	if now.Hour() == 23 && now.Minute() >= 50 {
		t.Skip("too close to midnight for an 11:59PM dose")
	}

	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	ownerID := "family-1"
	memberID := createMember(t, ts.URL, ownerID, map[string]any{"name": "Me"})
	nextID := createMedicine(t, ts.URL, ownerID, map[string]any{
		"name":     "Atorvastatin",
		"relation": memberID,
		"times":    []string{"11:59PM"},
		"quantity": 30,
	})
	dueID := createMedicine(t, ts.URL, ownerID, map[string]any{
		"name":     "Levothyroxine",
		"relation": memberID,
		"times":    []string{"12:00AM"},
		"quantity": 30,
	})

	st, body := doReq(t, ts.URL, "GET", "/medicines/status", ownerID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 status, got %d body=%s", st, string(body))
	}

	var board []struct {
		MedicineID string `json:"medicine_id"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(body, &board); err != nil {
		t.Fatalf("decode board: %v body=%s", err, string(body))
	}
	if len(board) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(board))
	}
	if board[0].MedicineID != dueID || board[0].Status != "Due" {
		t.Fatalf("expected Due row first, got %+v", board)
	}
	if board[1].MedicineID != nextID || board[1].Status != "Next" {
		t.Fatalf("expected Next row second, got %+v", board)
	}
}

func TestHTTP_CreateMedicine_Validation(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	ownerID := "family-1"
	memberID := createMember(t, ts.URL, ownerID, map[string]any{"name": "Amma"})

	cases := []struct {
		name    string
		user    string
		payload map[string]any
		want    int
	}{
		{"no times", ownerID, map[string]any{"name": "X", "relation": memberID, "times": []string{}, "quantity": 1}, http.StatusBadRequest},
		{"blank time", ownerID, map[string]any{"name": "X", "relation": memberID, "times": []string{"8:00AM", " "}, "quantity": 1}, http.StatusBadRequest},
		{"zero quantity", ownerID, map[string]any{"name": "X", "relation": memberID, "times": []string{"8:00AM"}, "quantity": 0}, http.StatusBadRequest},
		{"foreign member", "family-2", map[string]any{"name": "X", "relation": memberID, "times": []string{"8:00AM"}, "quantity": 1}, http.StatusForbidden},
		{"garbage time accepted", ownerID, map[string]any{"name": "X", "relation": memberID, "times": []string{"garbage", "6:00PM"}, "quantity": 1}, http.StatusCreated},
	}
	for _, c := range cases {
		st, body := doReq(t, ts.URL, "POST", "/medicines", c.user, c.payload)
		if st != c.want {
			t.Fatalf("%s: expected %d, got %d body=%s", c.name, c.want, st, string(body))
		}
	}
}

func TestHTTP_EndToEnd_DoctorAccess(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	ownerID := "family-1"
	doctorID := "doctor-1"

	memberID := createMember(t, ts.URL, ownerID, map[string]any{
		"name":       "Nimal Perera",
		"nic":        "199012345678",
		"phone":      "0771234567",
		"birth_date": "1990-05-01",
		"allergies":  []string{"penicillin"},
	})

	createMedicine(t, ts.URL, ownerID, map[string]any{
		"name":     "Amoxicillin",
		"relation": memberID,
		"times":    []string{"8:00AM", "8:00PM"},
		"quantity": 7,
	})

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	{
		st, body := doReq(t, ts.URL, "POST", "/members/"+memberID+"/appointments", ownerID, map[string]any{
			"doctor": "Dr. Silva",
			"reason": "Follow-up",
			"date":   tomorrow,
			"time":   "10:30 AM",
			"type":   "follow-up",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 create appointment, got %d body=%s", st, string(body))
		}
	}

	createRecord(t, ts.URL, ownerID, memberID, map[string]any{
		"type":        "prescription",
		"name":        "Antibiotics",
		"doctor_name": "Dr. Silva",
		"description": "Amoxicillin 500mg",
	})

	// 1) Sin grant el médico no ve nada
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+memberID, doctorID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 before grant, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "GET", "/members/"+memberID+"/records", doctorID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 list records before grant, got %d", st)
		}
	}

	// 2) Invitación sin notes:create
	grantID := inviteGrant(t, ts.URL, ownerID, memberID, doctorID, []string{
		string(access.ScopeProfileRead),
		string(access.ScopeRecordsRead),
		string(access.ScopeAppointmentsRead),
		string(access.ScopeMedicinesRead),
	})

	// invitado (no aceptado) todavía no alcanza
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+memberID, doctorID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 while invited, got %d", st)
		}
	}

	{
		st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/accept", doctorID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 accept grant, got %d body=%s", st, string(body))
		}
	}

	// 3) Dashboard: 1 paciente, la cita de mañana
	{
		st, body := doReq(t, ts.URL, "GET", "/doctor/dashboard", doctorID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 dashboard, got %d body=%s", st, string(body))
		}
		var d struct {
			PatientCount int `json:"patient_count"`
			Upcoming     []struct {
				PatientName string `json:"patient_name"`
				Doctor      string `json:"doctor"`
			} `json:"upcoming_appointments"`
		}
		_ = json.Unmarshal(body, &d)
		if d.PatientCount != 1 || len(d.Upcoming) != 1 || d.Upcoming[0].PatientName != "Nimal Perera" {
			t.Fatalf("unexpected dashboard %s", string(body))
		}
	}

	// 4) Búsqueda por teléfono
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/search?q=0771", doctorID, nil)
		if st != http.StatusOK || !strings.Contains(string(body), memberID) {
			t.Fatalf("expected search hit, got %d body=%s", st, string(body))
		}
	}

	// 5) Perfil agregado
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+memberID, doctorID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 patient view, got %d body=%s", st, string(body))
		}
		var v struct {
			Profile struct {
				Name string `json:"name"`
			} `json:"profile"`
			Prescriptions []json.RawMessage `json:"prescriptions"`
			Timeline      []struct {
				Label string `json:"label"`
			} `json:"timeline"`
			Appointments []json.RawMessage `json:"appointments"`
			Compliance   *struct {
				Medicines int `json:"medicines"`
			} `json:"compliance"`
		}
		_ = json.Unmarshal(body, &v)
		if v.Profile.Name != "Nimal Perera" || len(v.Prescriptions) != 1 || len(v.Appointments) != 1 {
			t.Fatalf("unexpected patient view %s", string(body))
		}
		if len(v.Timeline) != 1 || v.Timeline[0].Label != "prescription: Antibiotics" {
			t.Fatalf("unexpected timeline %s", string(body))
		}
		if v.Compliance == nil || v.Compliance.Medicines != 1 {
			t.Fatalf("expected compliance section, got %s", string(body))
		}
	}

	// 6) Sin notes:create la nota falla; con re-invitación funciona
	{
		st, _ := doReq(t, ts.URL, "POST", "/patients/"+memberID+"/notes", doctorID, map[string]any{"text": "BP ok"})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 note without scope, got %d", st)
		}
	}
	inviteGrant(t, ts.URL, ownerID, memberID, doctorID, []string{
		string(access.ScopeProfileRead),
		string(access.ScopeRecordsRead),
		string(access.ScopeNotesCreate),
	})
	{
		st, body := doReq(t, ts.URL, "POST", "/patients/"+memberID+"/notes", doctorID, map[string]any{"text": "BP ok"})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 note, got %d body=%s", st, string(body))
		}
		var rec struct {
			Type       string `json:"type"`
			Name       string `json:"name"`
			AuthorType string `json:"author_type"`
		}
		_ = json.Unmarshal(body, &rec)
		if rec.Type != "note" || rec.Name != "Doctor Note" || rec.AuthorType != "doctor" {
			t.Fatalf("unexpected note %s", string(body))
		}

		st, _ = doReq(t, ts.URL, "POST", "/patients/"+memberID+"/notes", doctorID, map[string]any{"text": "  "})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 empty note, got %d", st)
		}
	}

	// la re-invitación cambió scopes: medicines:read ya no está
	{
		st, _ := doReq(t, ts.URL, "GET", "/medicines?relation="+memberID, doctorID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 medicines after scope change, got %d", st)
		}
	}

	// 7) Revocar corta el acceso
	{
		st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/revoke", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 revoke, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "GET", "/patients/"+memberID, doctorID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 after revoke, got %d", st)
		}
	}
}

func TestHTTP_InviteGrant_RejectsUnknownScope(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	ownerID := "family-1"
	memberID := createMember(t, ts.URL, ownerID, map[string]any{"name": "Amma"})

	st, _ := doReq(t, ts.URL, "POST", "/members/"+memberID+"/grants", ownerID, map[string]any{
		"grantee_user_id": "doctor-1",
		"scopes":          []string{"records:read", "records:delete"},
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown scope, got %d", st)
	}
}

func TestHTTP_Records_ValidationAndVoid(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	ownerID := "family-1"
	memberID := createMember(t, ts.URL, ownerID, map[string]any{"name": "Amma"})

	// receta sin médico => 400
	{
		st, _ := doReq(t, ts.URL, "POST", "/members/"+memberID+"/records", ownerID, map[string]any{
			"type":        "prescription",
			"description": "x",
		})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 prescription without doctor, got %d", st)
		}
	}

	recID := createRecord(t, ts.URL, ownerID, memberID, map[string]any{
		"type":        "report",
		"name":        "Blood test",
		"description": "CBC",
		"file_url":    "https://files.example/cbc.pdf",
		"date":        "2025-03-01",
	})

	{
		st, body := doReq(t, ts.URL, "POST", "/members/"+memberID+"/records/"+recID+"/void", ownerID, nil)
		if st != http.StatusOK || !strings.Contains(string(body), `"status":"voided"`) {
			t.Fatalf("expected 200 voided, got %d body=%s", st, string(body))
		}
	}

	{
		st, body := doReq(t, ts.URL, "GET", "/members/"+memberID+"/records?types=report&from=2025-03-01&to=2025-03-01", ownerID, nil)
		if st != http.StatusOK || !strings.Contains(string(body), recID) {
			t.Fatalf("expected filtered list with record, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "GET", "/members/"+memberID+"/records?types=xray", ownerID, nil)
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 unknown type filter, got %d", st)
		}
	}
}

func TestHTTP_Appointments_UpdateAndValidation(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	ownerID := "family-1"
	memberID := createMember(t, ts.URL, ownerID, map[string]any{"name": "Amma"})
	otherMemberID := createMember(t, ts.URL, ownerID, map[string]any{"name": "Thaththa"})

	// hora fuera de formato => 400
	{
		st, _ := doReq(t, ts.URL, "POST", "/members/"+memberID+"/appointments", ownerID, map[string]any{
			"doctor": "Dr. Silva",
			"date":   "2025-03-12",
			"time":   "14:30",
		})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 bad clock, got %d", st)
		}
	}

	apptID := createAndGetID(t, ts.URL, "/members/"+memberID+"/appointments", ownerID, map[string]any{
		"doctor": "Dr. Silva",
		"date":   "2025-03-12",
		"time":   "10:30 AM",
	})
	path := "/members/" + memberID + "/appointments/" + apptID

	{
		st, body := doReq(t, ts.URL, "PATCH", path, ownerID, map[string]any{"status": "completed", "notes": "all good"})
		if st != http.StatusOK || !strings.Contains(string(body), `"status":"completed"`) || !strings.Contains(string(body), `"notes":"all good"`) {
			t.Fatalf("expected 200 completed, got %d body=%s", st, string(body))
		}
	}

	{
		st, _ := doReq(t, ts.URL, "PATCH", path, ownerID, map[string]any{"status": "lost"})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 unknown status, got %d", st)
		}
	}

	{
		st, _ := doReq(t, ts.URL, "PATCH", "/members/"+otherMemberID+"/appointments/"+apptID, ownerID, map[string]any{"status": "done"})
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 appointment of another member, got %d", st)
		}
	}

	{
		st, _ := doReq(t, ts.URL, "PATCH", path, "family-2", map[string]any{"status": "done"})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 non-owner, got %d", st)
		}
	}
}

func createMember(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()
	return createAndGetID(t, baseURL, "/members", userID, payload)
}

func createMedicine(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()
	return createAndGetID(t, baseURL, "/medicines", userID, payload)
}

func createRecord(t *testing.T, baseURL, userID, memberID string, payload map[string]any) string {
	t.Helper()
	return createAndGetID(t, baseURL, "/members/"+memberID+"/records", userID, payload)
}

func inviteGrant(t *testing.T, baseURL, ownerID, memberID, granteeID string, scopes []string) string {
	t.Helper()
	return createAndGetID(t, baseURL, "/members/"+memberID+"/grants", ownerID, map[string]any{
		"grantee_user_id": granteeID,
		"scopes":          scopes,
	})
}

func createAndGetID(t *testing.T, baseURL, path, userID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", path, userID, payload)
	if st != http.StatusCreated && st != http.StatusOK {
		t.Fatalf("expected 201 POST %s, got %d body=%s", path, st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("POST %s: missing id body=%s", path, string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
