package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lendit/internal/config"
	"lendit/internal/domain"
	"lendit/internal/export"
	"lendit/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the rental API over plain net/http. Caller identity
// arrives out-of-band in the X-User-Id header; API-key auth and rate limiting
// sit in front of every route.
type HTTPServer struct {
	cfg      *config.Config
	bookings domain.BookingService
	items    domain.ItemService
	users    domain.UserService
	comments domain.CommentService
	requests domain.RequestService
	cache    domain.EligibilityCache
	exporter *export.Exporter
	server   *http.Server
	auth     *HTTPAuth
	logger   zerolog.Logger
}

func NewHTTPServer(
	cfg *config.Config,
	bookings domain.BookingService,
	items domain.ItemService,
	users domain.UserService,
	comments domain.CommentService,
	requests domain.RequestService,
	cache domain.EligibilityCache,
	exporter *export.Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		items:    items,
		users:    users,
		comments: comments,
		requests: requests,
		cache:    cache,
		exporter: exporter,
		logger:   logger.With().Str("component", "http").Logger(),
	}
	srv.auth = NewHTTPAuth(&cfg.API)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/bookings/owner", srv.handleOwnerBookings)
	mux.HandleFunc("/api/v1/bookings/export", srv.handleBookingsExport)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/items/search", srv.handleItemSearch)
	mux.HandleFunc("/api/v1/items/", srv.handleItemByID)
	mux.HandleFunc("/api/v1/items", srv.handleItems)
	mux.HandleFunc("/api/v1/users/", srv.handleUserByID)
	mux.HandleFunc("/api/v1/users", srv.handleUsers)
	mux.HandleFunc("/api/v1/requests/all", srv.handleOtherRequests)
	mux.HandleFunc("/api/v1/requests/", srv.handleRequestByID)
	mux.HandleFunc("/api/v1/requests", srv.handleRequests)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
