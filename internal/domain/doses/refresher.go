package doses

import (
	"context"
	"sync/atomic"
	"time"

	"carehive/internal/platform/logger"
)

// DefaultRefreshInterval es la frecuencia del recálculo periódico.
const DefaultRefreshInterval = 60 * time.Second

// Pass recalcula el estado con un único now. stale() pasa a true cuando se
// pidió una pasada más nueva; en ese caso el resultado se descarta.
type Pass func(ctx context.Context, now time.Time, stale func() bool)

// Refresher dispara Pass al arrancar, cada interval y cada vez que alguien
// llama Trigger (foco de pantalla, después de marcar una dosis).
// El ticker vive lo que vive el ctx de Run.
type Refresher struct {
	interval time.Duration
	pass     Pass
	now      func() time.Time
	log      logger.Logger

	trigger chan struct{}
	gen     atomic.Uint64
}

func NewRefresher(interval time.Duration, pass Pass, log logger.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Refresher{
		interval: interval,
		pass:     pass,
		now:      time.Now,
		log:      log.With(map[string]any{"component": "refresher"}),
		trigger:  make(chan struct{}, 1),
	}
}

// Run bloquea hasta que ctx se cancela.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("refresher started", map[string]any{"interval": r.interval.String()})
	r.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("refresher stopped", nil)
			return ctx.Err()
		case <-ticker.C:
			r.runPass(ctx)
		case <-r.trigger:
			r.runPass(ctx)
		}
	}
}

// Trigger pide una pasada. Varias llamadas seguidas se colapsan en una.
func (r *Refresher) Trigger() {
	r.gen.Add(1)
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Refresher) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	g := r.gen.Load()
	r.pass(ctx, r.now(), func() bool { return r.gen.Load() != g })
}
