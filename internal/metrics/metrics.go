// ABOUTME: Prometheus instrumentation for the broadcast pipeline
// ABOUTME: Served by a side HTTP listener separate from the stream server
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters. A nil *Metrics is valid and all
// methods are no-ops, so instrumentation stays optional.
type Metrics struct {
	clients        prometheus.Gauge
	broadcastBytes prometheus.Counter
	chunks         prometheus.Counter
	rejections     prometheus.Counter
	disconnects    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netcast_connected_clients",
			Help: "Number of currently connected stream clients.",
		}),
		broadcastBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "netcast_broadcast_bytes_total",
			Help: "Encoded bytes handed to the broadcast fan-out.",
		}),
		chunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "netcast_broadcast_chunks_total",
			Help: "Encoded chunks handed to the broadcast fan-out.",
		}),
		rejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "netcast_rejected_connections_total",
			Help: "Connections refused because the client limit was reached.",
		}),
		disconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netcast_client_disconnects_total",
			Help: "Client disconnections by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) ClientConnected() {
	if m != nil {
		m.clients.Inc()
	}
}

func (m *Metrics) ClientDisconnected(reason string) {
	if m != nil {
		m.clients.Dec()
		m.disconnects.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Broadcast(bytes int) {
	if m != nil {
		m.chunks.Inc()
		m.broadcastBytes.Add(float64(bytes))
	}
}

func (m *Metrics) Rejected() {
	if m != nil {
		m.rejections.Inc()
	}
}

// Serve runs a /metrics endpoint on its own listener until ctx is canceled.
func Serve(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", "port", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return nil
}
