// Package metrics exposes chain generation and chain service activity to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "digitalcow"

// #region chain-metrics
// ChainMetrics holds the collectors for one registry.
type ChainMetrics struct {
	// GenerationsTotal counts state-space generations by outcome (generated, failed).
	GenerationsTotal *prometheus.CounterVec
	// GenerationSeconds measures how long each generation ran.
	GenerationSeconds prometheus.Histogram
	// States is the size of the most recently generated space.
	States prometheus.Gauge
	// RequestsTotal counts chain service calls by method and status code.
	RequestsTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the chain collectors on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *ChainMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &ChainMetrics{
		GenerationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "generations_total",
			Help:      "State-space generations by outcome",
		}, []string{"outcome"}),
		GenerationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "generation_duration_seconds",
			Help:      "Time spent generating a state space",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		States: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "states",
			Help:      "States in the most recently generated space",
		}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Chain service calls by method and status code",
		}, []string{"method", "code"}),
		gatherer: reg,
	}
}

// ObserveGeneration records one generation run by the chain cache.
func (m *ChainMetrics) ObserveGeneration(_ string, states int, elapsed time.Duration, err error) {
	m.GenerationSeconds.Observe(elapsed.Seconds())
	if err != nil {
		m.GenerationsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.GenerationsTotal.WithLabelValues("generated").Inc()
	m.States.Set(float64(states))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *ChainMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// #endregion chain-metrics

// #region interceptors
// UnaryInterceptor counts unary calls by method and resulting code.
func (m *ChainMetrics) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		m.RequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

// StreamInterceptor counts streaming calls by method and resulting code.
func (m *ChainMetrics) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		err := handler(srv, ss)
		m.RequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return err
	}
}

// #endregion interceptors
