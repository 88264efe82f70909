// Package server exposes the proxy engine over HTTP: the Slack Events API
// intake, a JSON message-action endpoint, health, and metrics.
package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rcliao/plura-proxy/internal/model"
	"github.com/rcliao/plura-proxy/internal/proxy"
)

// Engine is the part of proxy.Engine the server drives.
type Engine interface {
	HandleNewMessage(ctx context.Context, msg model.NewMessage) (proxy.Outcome, error)
	Dispatch(ctx context.Context, a model.MessageAction) (proxy.ActionResult, error)
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	// SigningSecret enables Slack request signature checks when set.
	SigningSecret string
	Logger        zerolog.Logger
	// Gatherer backs /metrics. Defaults to the global Prometheus registry.
	Gatherer prometheus.Gatherer
	// Now is used for signature timestamp checks.
	Now func() time.Time
}

// Server routes HTTP requests to the engine.
type Server struct {
	engine Engine
	pinger Pinger
	opts   Options
	log    zerolog.Logger
	router *mux.Router

	// pending tracks messages handed off after Slack was acknowledged.
	pending sync.WaitGroup
}

// New builds a Server and its routes.
func New(engine Engine, pinger Pinger, opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		engine: engine,
		pinger: pinger,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "http").Logger(),
	}

	r := mux.NewRouter()
	r.Use(s.recoverPanics)

	r.Handle("/push", s.verifySlack(http.HandlerFunc(s.handlePush))).Methods(http.MethodPost)
	r.Handle("/action", s.verifySlack(http.HandlerFunc(s.handleAction))).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Wait blocks until messages accepted by /push have been handed to the engine.
func (s *Server) Wait() {
	s.pending.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.pinger.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("health check failed")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// recoverPanics turns a handler panic into a 500 and logs the stack.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("url", r.URL.String()).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
