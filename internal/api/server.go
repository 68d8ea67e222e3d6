// Package api serves the dialogue engine over HTTP and WebSocket.
//
// Routes:
//
//	POST   /v1/turn                  answer one utterance
//	POST   /v1/turn/audio            transcribe the body and answer it
//	GET    /v1/ws?user=              chat over a WebSocket (JSON messages)
//	POST   /v1/game                  start a guessing game
//	POST   /v1/drill                 start a drill
//	POST   /v1/assignments           assign a task or guided session
//	GET    /v1/progress/{user}       progress analytics
//	DELETE /v1/session/{user}        drop session state
//	GET    /v1/symbols/resolve       resolve ?word= to a pictogram
//	GET    /v1/symbols/suggest       rank pictograms for ?text=
//	GET    /v1/categories            list symbol categories
//	GET    /healthz, /readyz         probes
//	GET    /metrics                  Prometheus scrape endpoint
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/pictalk/internal/app"
	"github.com/MrWong99/pictalk/internal/dialogue"
	"github.com/MrWong99/pictalk/internal/health"
	"github.com/MrWong99/pictalk/internal/observe"
	"github.com/MrWong99/pictalk/internal/symbolindex"
	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/provider/stt"
)

// Service is the application facade the API calls into. [app.App]
// implements it.
type Service interface {
	Turn(ctx context.Context, req dialogue.Request) dialogue.Response
	TurnAudio(ctx context.Context, req dialogue.Request, audio stt.Audio) (dialogue.Response, error)
	StartGame(ctx context.Context, user, category string) dialogue.Response
	StartDrill(ctx context.Context, user, category string) dialogue.Response
	Assign(ctx context.Context, asg memory.Assignment) (dialogue.Response, error)
	Progress(ctx context.Context, user string) (memory.Analytics, error)
	Logout(user string)
	Resolve(word string) (app.Resolution, bool)
	Suggest(ctx context.Context, text string, k int) []symbolindex.Suggestion
	Categories() []string
}

var _ Service = (*app.App)(nil)

const (
	defaultShutdownTimeout = 15 * time.Second
	defaultMaxAudioBytes   = 10 << 20
	maxJSONBytes           = 64 << 10
	defaultSuggestK        = 5
)

// Server is the HTTP transport. It implements [app.Runner].
type Server struct {
	svc             Service
	addr            string
	health          *health.Handler
	metrics         *observe.Metrics
	metricsHandler  http.Handler
	certFile        string
	keyFile         string
	shutdownTimeout time.Duration
	maxAudioBytes   int64
	log             *slog.Logger
}

// Option configures a [Server].
type Option func(*Server)

// WithAddr sets the listen address. Default: ":8080".
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithHealth mounts the probes of h.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics records request telemetry into m and serves /metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler replaces the /metrics handler. Default:
// promhttp.Handler().
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithTLS serves HTTPS with the given certificate and key files.
func WithTLS(certFile, keyFile string) Option {
	return func(s *Server) {
		s.certFile = certFile
		s.keyFile = keyFile
	}
}

// WithShutdownTimeout bounds graceful shutdown. Default: 15s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithMaxAudioBytes caps the body of /v1/turn/audio. Default: 10 MiB.
func WithMaxAudioBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxAudioBytes = n
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a Server over svc.
func New(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:             svc,
		addr:            ":8080",
		shutdownTimeout: defaultShutdownTimeout,
		maxAudioBytes:   defaultMaxAudioBytes,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metricsHandler == nil {
		s.metricsHandler = promhttp.Handler()
	}
	return s
}

// Handler returns the routed handler wrapped in the observe middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/turn", s.handleTurn)
	mux.HandleFunc("POST /v1/turn/audio", s.handleTurnAudio)
	mux.HandleFunc("GET /v1/ws", s.handleWS)
	mux.HandleFunc("POST /v1/game", s.handleGame)
	mux.HandleFunc("POST /v1/drill", s.handleDrill)
	mux.HandleFunc("POST /v1/assignments", s.handleAssign)
	mux.HandleFunc("GET /v1/progress/{user}", s.handleProgress)
	mux.HandleFunc("DELETE /v1/session/{user}", s.handleLogout)
	mux.HandleFunc("GET /v1/symbols/resolve", s.handleResolve)
	mux.HandleFunc("GET /v1/symbols/suggest", s.handleSuggest)
	mux.HandleFunc("GET /v1/categories", s.handleCategories)
	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	return observe.Middleware(s.metrics)(mux)
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is [Server.Run] on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api: listening", "addr", ln.Addr().String(), "tls", s.certFile != "")
		if s.certFile != "" {
			errCh <- srv.ServeTLS(ln, s.certFile, s.keyFile)
			return
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("api: graceful shutdown incomplete", "err", err)
		_ = srv.Close()
	}
	s.log.Info("api: stopped")
	return nil
}
