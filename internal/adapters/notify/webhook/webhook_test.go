package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carehive/internal/platform/httpclient"
	"carehive/internal/ports/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_PostsJSON(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/hooks/reminders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := httpclient.New(httpclient.Config{})
	require.NoError(t, err)

	trigger := time.Date(2025, 3, 10, 7, 55, 0, 0, time.UTC)
	err = New(c, srv.URL+"/hooks/reminders").Send(context.Background(), notify.Reminder{
		Key:        "med-1|8:00AM|2025-03-10",
		UserID:     "family-1",
		MedicineID: "med-1",
		Title:      "Medicine reminder",
		Body:       "Time to take Paracetamol (8:00AM dose).",
		TriggerAt:  trigger,
	})
	require.NoError(t, err)

	assert.Equal(t, "med-1", got.MedicineID)
	assert.Equal(t, "family-1", got.UserID)
	assert.True(t, trigger.Equal(got.TriggerAt))
}

func TestSend_Non2xxIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := httpclient.New(httpclient.Config{})
	require.NoError(t, err)

	err = New(c, srv.URL).Send(context.Background(), notify.Reminder{Key: "k"})
	var he *httpclient.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadGateway, he.StatusCode)
	assert.True(t, he.Temporary())
}
