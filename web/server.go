// ABOUTME: REST API server over the shared resource handlers
// ABOUTME: chi router with request ids, request logging, and bearer token sessions
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/handlers"
	"github.com/harperreed/crmlite/policy"
	"github.com/harperreed/crmlite/session"
	"github.com/harperreed/crmlite/storage"
)

type Server struct {
	logger   *log.Logger
	resolver *session.Resolver

	deals       *handlers.DealHandlers
	activities  *handlers.ActivityHandlers
	contacts    *handlers.ContactHandlers
	competitors *handlers.CompetitorHandlers
	files       *handlers.FileHandlers
	dashboard   *handlers.DashboardHandlers
	graphs      *handlers.VizHandlers
	users       *handlers.UserHandlers
}

func NewServer(store *db.Store, blobs *storage.Local, logger *log.Logger) *Server {
	return &Server{
		logger:      logger,
		resolver:    session.NewResolver(store),
		deals:       handlers.NewDealHandlers(store, blobs, logger),
		activities:  handlers.NewActivityHandlers(store),
		contacts:    handlers.NewContactHandlers(store),
		competitors: handlers.NewCompetitorHandlers(store),
		files:       handlers.NewFileHandlers(store, blobs, logger),
		dashboard:   handlers.NewDashboardHandlers(store),
		graphs:      handlers.NewVizHandlers(store),
		users:       handlers.NewUserHandlers(store),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(s.authenticate)
		s.routes(api)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, policy.Deny(policy.ErrNotFound, "Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed", RequestID: RequestID(r.Context())})
	})

	return r
}

// Start serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := newRequestID()
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// authenticate attaches the bearer token's identity when there is one.
// Anonymous requests continue; handlers reject them with 401.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.resolver.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := r.Context()
		if id != nil {
			ctx = policy.WithIdentity(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
