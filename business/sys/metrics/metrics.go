// Package metrics constructs the metrics the application will track.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// This holds the single instance of the metrics value needed for collecting
// metrics. The prometheus collectors are safe for concurrent use.
var m = struct {
	requests   prometheus.Counter
	errors     prometheus.Counter
	panics     prometheus.Counter
	goroutines prometheus.Gauge
}{
	requests: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "node",
		Name:      "requests_total",
		Help:      "Number of API requests served.",
	}),
	errors: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "node",
		Name:      "errors_total",
		Help:      "Number of API requests that failed.",
	}),
	panics: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "node",
		Name:      "panics_total",
		Help:      "Number of API requests that panicked.",
	}),
	goroutines: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "node",
		Name:      "goroutines",
		Help:      "Number of goroutines sampled every 100 requests.",
	}),
}

// =============================================================================

// metrics marks a request context as tracked.
type metrics struct{}

// ctxKey represents the type of value for the context key.
type ctxKey int

// key is how metric values are stored/retrieved.
const key ctxKey = 1

// Set sets the metrics data into the context.
func Set(ctx context.Context) context.Context {
	return context.WithValue(ctx, key, metrics{})
}

// AddRequests increments the request count by 1.
func AddRequests(ctx context.Context) {
	if _, ok := ctx.Value(key).(metrics); ok {
		m.requests.Inc()
	}
}

// AddErrors increments the errors count by 1.
func AddErrors(ctx context.Context) {
	if _, ok := ctx.Value(key).(metrics); ok {
		m.errors.Inc()
	}
}

// AddPanics increments the panics count by 1.
func AddPanics(ctx context.Context) {
	if _, ok := ctx.Value(key).(metrics); ok {
		m.panics.Inc()
	}
}

// SetGoroutines records the number of goroutines.
func SetGoroutines(ctx context.Context, n int) {
	if _, ok := ctx.Value(key).(metrics); ok {
		m.goroutines.Set(float64(n))
	}
}

// =============================================================================

// NodeSource provides the values of the node metrics.
type NodeSource interface {
	Height() int
	MempoolLength() int
	PeerCount() int
}

// RegisterNode exposes the node values as gauges read at scrape time. It
// must be called once.
func RegisterNode(src NodeSource) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "node",
		Subsystem: "chain",
		Name:      "height",
		Help:      "Height of the local chain.",
	}, func() float64 { return float64(src.Height()) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "node",
		Subsystem: "mempool",
		Name:      "transactions",
		Help:      "Number of pending transactions.",
	}, func() float64 { return float64(src.MempoolLength()) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "node",
		Subsystem: "p2p",
		Name:      "connections",
		Help:      "Number of open peer connections.",
	}, func() float64 { return float64(src.PeerCount()) })
}
