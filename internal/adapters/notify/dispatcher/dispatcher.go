// Package dispatcher es el lado "plataforma" de los recordatorios: guarda un
// timer one-shot por Key y, al vencer, entrega el Reminder al Sender.
package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"carehive/internal/platform/logger"
	"carehive/internal/ports/notify"
)

// DefaultSendTimeout acota cada entrega.
const DefaultSendTimeout = 10 * time.Second

var ErrClosed = errors.New("dispatcher closed")

type entry struct {
	timer *time.Timer
}

type Dispatcher struct {
	sender  notify.Sender
	log     logger.Logger
	now     func() time.Time
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*entry
	closed  bool
	wg      sync.WaitGroup
}

func New(sender notify.Sender, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		sender:  sender,
		log:     log.With(map[string]any{"component": "dispatcher"}),
		now:     time.Now,
		timeout: DefaultSendTimeout,
		pending: make(map[string]*entry),
	}
}

// Schedule agenda r. Un TriggerAt que no es futuro no agenda nada (y no es
// error). Reagendar la misma Key reemplaza el timer pendiente.
func (d *Dispatcher) Schedule(ctx context.Context, r notify.Reminder) error {
	delay := r.TriggerAt.Sub(d.now())
	if delay <= 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if prev, ok := d.pending[r.Key]; ok {
		prev.timer.Stop()
	}

	e := &entry{}
	e.timer = time.AfterFunc(delay, func() { d.fire(e, r) })
	d.pending[r.Key] = e
	return nil
}

// Pending devuelve cuántos recordatorios esperan disparo.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Close cancela los timers pendientes y espera las entregas en curso.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	for k, e := range d.pending {
		e.timer.Stop()
		delete(d.pending, k)
	}
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}

func (d *Dispatcher) fire(e *entry, r notify.Reminder) {
	d.mu.Lock()
	if cur, ok := d.pending[r.Key]; !ok || cur != e || d.closed {
		d.mu.Unlock()
		return
	}
	delete(d.pending, r.Key)
	d.wg.Add(1)
	d.mu.Unlock()
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, r); err != nil {
		d.log.Warn("reminder delivery failed", map[string]any{
			"key":   r.Key,
			"user":  r.UserID,
			"error": err,
		})
		return
	}
	d.log.Debug("reminder delivered", map[string]any{"key": r.Key, "user": r.UserID})
}
