package appointments_test

import (
	"context"
	"testing"
	"time"

	"carehive/internal/adapters/storage/memory"
	"carehive/internal/domain/appointments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *appointments.Service {
	return appointments.NewService(memory.NewAppointmentRepo(), time.UTC)
}

func TestCreate_DefaultsAndScheduledAt(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	a, err := svc.Create(ctx, "m1", "u1", appointments.CreateInput{
		Doctor: "  Dr. Silva ",
		Date:   "2025-03-12",
		Time:   "2:15 PM",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "Dr. Silva", a.Doctor)
	assert.Equal(t, appointments.StatusScheduled, a.Status)
	assert.Equal(t, appointments.TypeCheckup, a.Type)
	assert.Equal(t, time.Date(2025, 3, 12, 14, 15, 0, 0, time.UTC), a.ScheduledAt)
	assert.Equal(t, "2:15 PM", a.Time)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	valid := appointments.CreateInput{Doctor: "Dr. Silva", Date: "2025-03-12", Time: "10:30 AM"}

	cases := []struct {
		name   string
		member string
		in     func(appointments.CreateInput) appointments.CreateInput
	}{
		{"missing member", "", func(in appointments.CreateInput) appointments.CreateInput { return in }},
		{"missing doctor", "m1", func(in appointments.CreateInput) appointments.CreateInput { in.Doctor = " "; return in }},
		{"missing date", "m1", func(in appointments.CreateInput) appointments.CreateInput { in.Date = ""; return in }},
		{"missing time", "m1", func(in appointments.CreateInput) appointments.CreateInput { in.Time = ""; return in }},
		{"bad date", "m1", func(in appointments.CreateInput) appointments.CreateInput { in.Date = "12/03/2025"; return in }},
		{"bad clock", "m1", func(in appointments.CreateInput) appointments.CreateInput { in.Time = "14:30"; return in }},
		{"unknown type", "m1", func(in appointments.CreateInput) appointments.CreateInput { in.Type = "surgery"; return in }},
		{"unknown status", "m1", func(in appointments.CreateInput) appointments.CreateInput { in.Status = "lost"; return in }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Create(ctx, c.member, "u1", c.in(valid))
			assert.ErrorIs(t, err, appointments.ErrInvalidInput)
		})
	}

	list, err := svc.ListByMember(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	a, err := svc.Create(ctx, "m1", "u1", appointments.CreateInput{Doctor: "Dr. Silva", Date: "2025-03-12", Time: "10:30 AM", Notes: "fasting"})
	require.NoError(t, err)

	done := appointments.StatusDone
	updated, err := svc.Update(ctx, "m1", a.ID, appointments.UpdateInput{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusDone, updated.Status)
	assert.Equal(t, "fasting", updated.Notes)

	notes := "  bring reports "
	updated, err = svc.Update(ctx, "m1", a.ID, appointments.UpdateInput{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusDone, updated.Status)
	assert.Equal(t, "bring reports", updated.Notes)

	bogus := appointments.Status("lost")
	_, err = svc.Update(ctx, "m1", a.ID, appointments.UpdateInput{Status: &bogus})
	assert.ErrorIs(t, err, appointments.ErrInvalidInput)

	// la cita existe pero es de otro familiar
	_, err = svc.Update(ctx, "m2", a.ID, appointments.UpdateInput{Status: &done})
	assert.ErrorIs(t, err, appointments.ErrNotFound)

	_, err = svc.Update(ctx, "m1", "missing", appointments.UpdateInput{Status: &done})
	assert.ErrorIs(t, err, appointments.ErrNotFound)

	stored, err := svc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusDone, stored.Status)
	assert.Equal(t, "bring reports", stored.Notes)
}

func TestUpcoming(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	mk := func(member, date string) appointments.Appointment {
		a, err := svc.Create(ctx, member, "u1", appointments.CreateInput{Doctor: "Dr. Silva", Date: date, Time: "9:00 AM"})
		require.NoError(t, err)
		return a
	}
	past := mk("m1", "2025-03-01")
	later := mk("m1", "2025-03-20")
	sooner := mk("m2", "2025-03-11")
	cancelled := mk("m2", "2025-03-12")
	mk("m3", "2025-03-13")

	st := appointments.StatusCancelled
	_, err := svc.Update(ctx, "m2", cancelled.ID, appointments.UpdateInput{Status: &st})
	require.NoError(t, err)

	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	got, err := svc.Upcoming(ctx, []string{"m1", "m2"}, now, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, sooner.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)
	assert.NotEqual(t, past.ID, got[0].ID)

	limited, err := svc.Upcoming(ctx, []string{"m1", "m2"}, now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := svc.Upcoming(ctx, nil, now, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
