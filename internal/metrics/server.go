package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusServer exposes the default registry over HTTP at the
// configured path. The teacher's cmd/ entry points construct one via
// NewPrometheusServer; its source was not part of the retrieved
// reference set, so it is recreated here against that same call-site
// contract (Start blocks until ctx is cancelled, Shutdown is graceful).
type PrometheusServer struct {
	srv *http.Server
}

// NewPrometheusServer builds a metrics HTTP server listening on addr,
// serving the registered collectors at path.
func NewPrometheusServer(addr, path string) *PrometheusServer {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	return &PrometheusServer{srv: &http.Server{Addr: addr, Handler: mux}}
}

// Start begins serving metrics. It blocks until ctx is cancelled or an
// error occurs, mirroring the server-loop shutdown contract for cipsd.
func (s *PrometheusServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully stops the metrics server.
func (s *PrometheusServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
