package middleware

import (
	"context"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the RPC collectors. Register them once per registry.
type Metrics struct {
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roomsplit",
				Name:      "rpc_requests_total",
				Help:      "How many RPCs processed, partitioned by procedure and Connect code.",
			},
			[]string{"procedure", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "roomsplit",
				Name:      "rpc_duration_seconds",
				Help:      "The RPC latencies in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"procedure", "code"},
		),
	}

	for _, c := range []prometheus.Collector{m.requestCount, m.requestDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("could not register %s with Prometheus: %w", c, err)
		}
	}
	return m, nil
}

// Interceptor records count and latency for every unary RPC.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			procedure := req.Spec().Procedure
			m.requestCount.WithLabelValues(procedure, code).Inc()
			m.requestDuration.WithLabelValues(procedure, code).Observe(time.Since(start).Seconds())

			return resp, err
		}
	}
}
