package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"news_tracker/internal/domain"
)

// ArticleReader is the storage slice backing the read endpoints.
type ArticleReader interface {
	QueryBySubject(ctx context.Context, subject domain.Subject, since time.Time) ([]domain.Article, error)
	Statistics(ctx context.Context) (*domain.Statistics, error)
}

type RunReader interface {
	Latest(ctx context.Context) (*domain.CollectionRun, error)
}

// Server exposes read-only dashboard endpoints over the stored articles and
// the run log.
type Server struct {
	articles ArticleReader
	runs     RunReader
	logger   *slog.Logger
	router   chi.Router
}

func New(articles ArticleReader, runs RunReader, logger *slog.Logger) *Server {
	s := &Server{
		articles: articles,
		runs:     runs,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/articles", s.handleArticles)
		r.Get("/runs/latest", s.handleLatestRun)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.articles.Statistics(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load statistics")
		s.logger.Error("stats query failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		s.writeError(w, http.StatusBadRequest, "subject parameter is required")
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	articles, err := s.articles.QueryBySubject(r.Context(), domain.Subject(subject), since)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load articles")
		s.logger.Error("article query failed", "subject", subject, "error", err)
		return
	}
	if articles == nil {
		articles = []domain.Article{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"subject":  subject,
		"days":     days,
		"count":    len(articles),
		"articles": articles,
	})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Latest(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load run")
		s.logger.Error("run query failed", "error", err)
		return
	}
	if run == nil {
		s.writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
