package consumer

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sum-admin/internal/event"
)

// Consumer 独立订阅同一事件流的处理器；互不假设对方已执行
type Consumer interface {
	event.Handler
	Name() string
	Topics() []event.Type
}

var (
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "consumer_events_total", Help: "Domain events handled per consumer"},
		[]string{"consumer", "event_type", "outcome"},
	)
	handleLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consumer_handle_duration_seconds",
			Help:    "Latency of domain event handling",
			Buckets: prometheus.DefBuckets,
		}, []string{"consumer"},
	)
)

func init() { prometheus.MustRegister(eventsTotal, handleLatency) }

type instrumented struct {
	Consumer
}

// Instrument 包一层 prometheus 计数
func Instrument(c Consumer) Consumer { return instrumented{c} }

func (i instrumented) Handle(ctx context.Context, e event.Envelope) error {
	start := time.Now()
	err := i.Consumer.Handle(ctx, e)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	eventsTotal.WithLabelValues(i.Name(), string(e.EventType), outcome).Inc()
	handleLatency.WithLabelValues(i.Name()).Observe(time.Since(start).Seconds())
	return err
}
