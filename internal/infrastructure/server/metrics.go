package server

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)

	// Store counters
	registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "store_local_writes_total",
			Help: "Collection writes applied locally",
		},
		func() float64 { return float64(s.deps.Store.Stats().LocalWrites) },
	))
	registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "store_remote_applies_total",
			Help: "Cloud updates applied to the local store",
		},
		func() float64 { return float64(s.deps.Store.Stats().RemoteApplies) },
	))

	// Sync bridge counters
	if s.deps.Bridge != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "sync_pushes_total",
				Help: "Outbound document pushes attempted",
			},
			func() float64 { return float64(s.deps.Bridge.Stats().Pushes) },
		))
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "sync_push_failures_total",
				Help: "Outbound document pushes that failed",
			},
			func() float64 { return float64(s.deps.Bridge.Stats().PushFailures) },
		))
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "sync_inbound_applied_total",
				Help: "Inbound documents applied locally",
			},
			func() float64 { return float64(s.deps.Bridge.Stats().InboundApplied) },
		))
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "sync_inbound_skipped_total",
				Help: "Inbound documents skipped as identical",
			},
			func() float64 { return float64(s.deps.Bridge.Stats().InboundSkipped) },
		))
	}

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}
