package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes a registry on /metrics for the lifetime of a
// command.
type MetricsServer struct {
	listener net.Listener
	server   *http.Server
}

func ServeMetrics(listen string, gatherer prometheus.Gatherer, logger logr.Logger) (*MetricsServer, error) {
	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, ValidationError(fmt.Sprintf("failed to listen for metrics on %s", listen), err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "metrics server stopped", "listen", listener.Addr().String())
		}
	}()
	logger.V(1).Info("serving metrics", "listen", listener.Addr().String())

	return &MetricsServer{listener: listener, server: server}, nil
}

// Addr is the bound address, useful with port 0.
func (m *MetricsServer) Addr() string {
	return m.listener.Addr().String()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
