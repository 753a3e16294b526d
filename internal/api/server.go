// Package api serves a read-only HTTP view over a run's results for
// inspection tooling.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/logging"
	"github.com/medquorum/medquorum/internal/scoring"
)

// Server exposes list/get/summary endpoints over a ResultStore.
type Server struct {
	router  chi.Router
	source  *Source
	origins []string
	log     *logging.Logger
}

// NewServer creates the API server over a result source.
func NewServer(source *Source, origins []string, log *logging.Logger) *Server {
	s := &Server{
		source:  source,
		origins: origins,
		log:     log,
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/results", s.handleListResults)
		r.Get("/results/{idx}", s.handleGetResult)
		r.Get("/summary", s.handleSummary)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	recs, err := s.source.Records(r.Context())
	if err != nil {
		s.log.Error("listing results", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load results")
		return
	}
	if recs == nil {
		recs = []core.ResultRecord{}
	}
	respondJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "idx must be an integer")
		return
	}

	recs, err := s.source.Records(r.Context())
	if err != nil {
		s.log.Error("loading results", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load results")
		return
	}
	for i := range recs {
		if recs[i].Idx == idx {
			respondJSON(w, http.StatusOK, recs[i])
			return
		}
	}
	respondError(w, http.StatusNotFound, "no record with that idx")
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	recs, err := s.source.Records(r.Context())
	if err != nil {
		s.log.Error("loading results", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load results")
		return
	}
	respondJSON(w, http.StatusOK, scoring.Summarize(recs))
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting results API", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
