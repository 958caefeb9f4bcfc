// Package server exposes the catalog over HTTP: public reads, a server-sent
// event stream of catalog changes, and role-gated admin mutations.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sinhabinayak2207/extrawork/internal/auth"
	"github.com/sinhabinayak2207/extrawork/internal/service"
)

// DefaultMaxUpload bounds multipart image uploads.
const DefaultMaxUpload = 20 << 20

// Options configures a Server. Service is required.
type Options struct {
	Service *service.Service
	Auth    *auth.Authenticator // admin and login routes are omitted when nil
	Logger  *zap.Logger
	// AssetsDir is served at /assets/ when the local asset host is used.
	AssetsDir string
	MaxUpload int64
	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration
}

// Server holds the HTTP handlers.
type Server struct {
	svc       *service.Service
	auth      *auth.Authenticator
	log       *zap.Logger
	assetsDir string
	maxUpload int64
	heartbeat time.Duration
}

// New creates a server.
func New(opts Options) *Server {
	s := &Server{
		svc:       opts.Service,
		auth:      opts.Auth,
		log:       opts.Logger,
		assetsDir: opts.AssetsDir,
		maxUpload: opts.MaxUpload,
		heartbeat: opts.Heartbeat,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("http")
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUpload
	}
	if s.heartbeat <= 0 {
		s.heartbeat = 15 * time.Second
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Get("/{slug}", s.getProduct)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.listCategories)
			r.Get("/{slug}", s.getCategory)
			r.Get("/{slug}/products", s.categoryProducts)
		})
		r.Get("/events", s.events)

		if s.auth != nil {
			r.Post("/auth/login", s.login)
			r.Route("/admin", s.adminRoutes)
		}
	})

	if s.assetsDir != "" {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.assetsDir))))
	}
	return r
}

func (s *Server) adminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware(auth.RoleAdmin))
		r.Patch("/{collection}/{id}", s.updateItem)
		r.Post("/categories/{slug}/recount", s.recount)
		r.Post("/refresh", s.refresh)
	})
	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware(auth.RoleMasterAdmin))
		r.Put("/{collection}/{id}/image", s.replaceImage)
		r.Post("/{collection}", s.createItem)
		r.Delete("/{collection}/{id}", s.deleteItem)
	})
}

// requestLogger logs one line per request with zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
