package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/hearth-archive/hearth/pkg/usecase"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultAuthTimeout  = 10 * time.Second
)

type Server struct {
	router       *chi.Mux
	uc           *usecase.UseCases
	upgrader     websocket.Upgrader
	origins      map[string]struct{}
	pingInterval time.Duration
	authTimeout  time.Duration
}

type Options func(*Server)

// WithAllowedOrigins restricts websocket upgrades to the given origins.
// Without it any origin is accepted.
func WithAllowedOrigins(origins ...string) Options {
	return func(s *Server) {
		for _, o := range origins {
			s.origins[o] = struct{}{}
		}
	}
}

// WithPingInterval sets how often websocket pings are sent
func WithPingInterval(d time.Duration) Options {
	return func(s *Server) {
		s.pingInterval = d
	}
}

// WithAuthTimeout sets how long a websocket client has to authenticate
func WithAuthTimeout(d time.Duration) Options {
	return func(s *Server) {
		s.authTimeout = d
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:       r,
		uc:           uc,
		origins:      make(map[string]struct{}),
		pingInterval: defaultPingInterval,
		authTimeout:  defaultAuthTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ws", s.wsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.chatHandler)
		r.Get("/bundles", s.bundlesHandler)
		r.Get("/search", s.searchHandler)

		r.Route("/triggers", func(r chi.Router) {
			r.Get("/today", s.triggerTodayHandler)
			r.Post("/run", s.triggerRunHandler)
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/", s.listDeliveriesHandler)
			r.Get("/{id}", s.getDeliveryHandler)
			r.Post("/{id}/viewed", s.acknowledgeHandler(usecase.AckViewed))
			r.Post("/{id}/dismissed", s.acknowledgeHandler(usecase.AckDismissed))
		})

		r.Get("/clients", s.clientsHandler)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.origins) == 0 {
		return true
	}
	_, ok := s.origins[r.Header.Get("Origin")]
	return ok
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
