package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/yourusername/bgtutor/internal/met"
	"github.com/yourusername/bgtutor/internal/pool"
	"github.com/yourusername/bgtutor/internal/store"
	"github.com/yourusername/bgtutor/pkg/evaluator"
	"github.com/yourusername/bgtutor/pkg/game"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Addr         string        // host:port to listen on
	ReadTimeout  time.Duration // default 30s
	WriteTimeout time.Duration // default 30s; event streams clear it
	CORSOrigins  []string      // default all
	SessionTTL   time.Duration // idle sessions are closed after this; 0 keeps them
}

// DefaultConfig returns a ServerConfig with sensible defaults.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Addr:         "localhost:8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		CORSOrigins:  []string{"*"},
		SessionTTL:   2 * time.Hour,
	}
}

// HealthChecker reports whether the evaluation service is up.
type HealthChecker interface {
	Health(ctx context.Context) (*evaluator.Health, error)
}

// Deps are the collaborators shared by every session. Nil fields disable the
// feature that needs them.
type Deps struct {
	Evaluator   game.Evaluator
	Coach       game.Coach
	Stats       store.StatsStore
	Preferences store.PreferenceStore
	Archive     store.Archive
	Pool        *pool.WorkerPool
	MET         *met.Table
	Health      HealthChecker
	Logger      *zap.Logger

	// NewDice returns the dice of a new session; seed 0 asks for random
	// dice. Defaults to game.NewRandomDice.
	NewDice func(seed uint64) game.DiceSource

	// Base is the session configuration that requests adjust.
	Base game.Config
}

// Server is the HTTP API server.
type Server struct {
	config   ServerConfig
	deps     Deps
	log      *zap.Logger
	sessions *registry
	version  string
	server   *http.Server
}

// NewServer creates a server. Call Handler to mount it elsewhere or
// ListenAndServe to run it.
func NewServer(config ServerConfig, deps Deps, version string) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Pool == nil {
		deps.Pool = pool.New(pool.DefaultConfig())
	}
	if deps.MET == nil {
		deps.MET = met.Default()
	}
	if deps.NewDice == nil {
		deps.NewDice = func(seed uint64) game.DiceSource { return game.NewRandomDice(seed) }
	}
	if len(config.CORSOrigins) == 0 {
		config.CORSOrigins = []string{"*"}
	}
	return &Server{
		config:   config,
		deps:     deps,
		log:      deps.Logger.Named("api"),
		sessions: newRegistry(),
		version:  version,
	}
}

// accessLog logs every request once it has been served.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Handler returns the routes of the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         60 * 15,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.Health)
		r.Post("/plays", s.Plays)
		r.Get("/stats", s.Stats)
		r.Get("/preferences/{user}", s.GetPreferences)
		r.Put("/preferences/{user}", s.PutPreferences)
		r.Get("/games/{id}", s.ArchivedGame)

		r.Route("/matches", func(r chi.Router) {
			r.Post("/", s.CreateMatch)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.withSession)
				r.Get("/", s.GetMatch)
				r.Delete("/", s.DeleteMatch)
				r.Get("/games", s.MatchGames)
				r.Get("/patterns", s.Patterns)
				r.Get("/record.mat", s.ExportMAT)
				r.Get("/events", s.Events)
				r.Get("/ws", s.WebSocket)
				r.Post("/{intent}", s.Intent)
			})
		})
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully and
// closes every session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.config.Addr), zap.String("version", s.version))
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.server.Shutdown(shutdownCtx)
	s.Close()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

// ExpireSessions closes sessions idle for longer than the TTL every
// interval until ctx is done.
func (s *Server) ExpireSessions(ctx context.Context, interval time.Duration) error {
	if s.config.SessionTTL <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			for _, sess := range s.sessions.expire(now.Add(-s.config.SessionTTL)) {
				s.log.Info("session expired", zap.String("session", sess.ID))
				sess.Engine.Close()
			}
		}
	}
}

// Close ends every session.
func (s *Server) Close() {
	for _, sess := range s.sessions.drain() {
		sess.Engine.Close()
	}
}
