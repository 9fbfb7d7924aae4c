package doses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func waitPass(t *testing.T, ch <-chan time.Time) time.Time {
	t.Helper()
	select {
	case now := <-ch:
		return now
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh pass")
		return time.Time{}
	}
}

func TestRefresher_RunsOnStartAndOnTrigger_StopsOnCancel(t *testing.T) {
	passes := make(chan time.Time, 8)
	r := NewRefresher(time.Hour, func(ctx context.Context, now time.Time, stale func() bool) {
		passes <- now
	}, nil)

	fixed := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Equal(t, fixed, waitPass(t, passes))

	r.Trigger()
	assert.Equal(t, fixed, waitPass(t, passes))

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRefresher_TickerFires(t *testing.T) {
	passes := make(chan time.Time, 8)
	r := NewRefresher(10*time.Millisecond, func(ctx context.Context, now time.Time, stale func() bool) {
		select {
		case passes <- now:
		default:
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	waitPass(t, passes) // arranque
	waitPass(t, passes) // tick
}

func TestRefresher_TriggerDuringPassMarksItStale(t *testing.T) {
	staleSeen := make(chan bool, 4)
	var r *Refresher
	first := true
	r = NewRefresher(time.Hour, func(ctx context.Context, now time.Time, stale func() bool) {
		if first {
			first = false
			assert.False(t, stale())
			r.Trigger() // llega un fetch más nuevo mientras esta pasada trabaja
		}
		staleSeen <- stale()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	assert.True(t, <-staleSeen, "superseded pass must see stale() == true")
	assert.False(t, <-staleSeen, "follow-up pass is current")
}

func TestRefresher_TriggerCoalesces(t *testing.T) {
	r := NewRefresher(time.Hour, func(context.Context, time.Time, func() bool) {}, nil)
	r.Trigger()
	r.Trigger()
	r.Trigger()
	assert.Len(t, r.trigger, 1)
}
