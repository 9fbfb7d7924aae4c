package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los contadores del servicio sobre un registry propio,
// así cada router (y cada test) tiene su set sin colisiones globales.
type Metrics struct {
	reg *prometheus.Registry

	RefreshPasses      prometheus.Counter
	RemindersScheduled prometheus.Counter
	DoseActions        *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		RefreshPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carehive",
			Name:      "refresh_passes_total",
			Help:      "Dose status refresh passes executed.",
		}),
		RemindersScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carehive",
			Name:      "reminders_scheduled_total",
			Help:      "Reminder requests handed to the notification scheduler.",
		}),
		DoseActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carehive",
			Name:      "dose_actions_total",
			Help:      "Mark taken / mark skip actions.",
		}, []string{"action"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carehive",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status.",
		}, []string{"method", "status"}),
	}

	reg.MustRegister(m.RefreshPasses, m.RemindersScheduled, m.DoseActions, m.HTTPRequests)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveDoseAction(action string) {
	if m == nil {
		return
	}
	m.DoseActions.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveRefresh(reminders int) {
	if m == nil {
		return
	}
	m.RefreshPasses.Inc()
	m.RemindersScheduled.Add(float64(reminders))
}
