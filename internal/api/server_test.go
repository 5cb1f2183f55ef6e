package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_tracker/internal/domain"
)

type stubArticleReader struct {
	articles []domain.Article
	stats    *domain.Statistics
	err      error

	gotSubject domain.Subject
	gotSince   time.Time
}

func (r *stubArticleReader) QueryBySubject(_ context.Context, subject domain.Subject, since time.Time) ([]domain.Article, error) {
	r.gotSubject = subject
	r.gotSince = since
	return r.articles, r.err
}

func (r *stubArticleReader) Statistics(context.Context) (*domain.Statistics, error) {
	return r.stats, r.err
}

type stubRunReader struct {
	run *domain.CollectionRun
	err error
}

func (r *stubRunReader) Latest(context.Context) (*domain.CollectionRun, error) {
	return r.run, r.err
}

func newTestServer(articles *stubArticleReader, runs *stubRunReader) *Server {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(articles, runs, logger)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&stubArticleReader{}, &stubRunReader{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	articles := &stubArticleReader{stats: &domain.Statistics{
		TotalArticles:  5,
		BySubject:      map[domain.Subject]int{"Narendra Modi": 3, "CR Patil": 2},
		UniqueChannels: 4,
		Languages:      []string{"en", "hi"},
	}}
	srv := newTestServer(articles, &stubRunReader{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 5, got.TotalArticles)
	assert.Equal(t, 3, got.BySubject["Narendra Modi"])
}

func TestArticles_RequiresSubject(t *testing.T) {
	srv := newTestServer(&stubArticleReader{}, &stubRunReader{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArticles_RejectsBadDays(t *testing.T) {
	srv := newTestServer(&stubArticleReader{}, &stubRunReader{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles?subject=Narendra+Modi&days=-1", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArticles_ReturnsWindow(t *testing.T) {
	articles := &stubArticleReader{articles: []domain.Article{
		{Identity: "id-1", Subject: "Narendra Modi", Channel: "NDTV", Title: "Headline"},
	}}
	srv := newTestServer(articles, &stubRunReader{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles?subject=Narendra+Modi&days=30", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Subject("Narendra Modi"), articles.gotSubject)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -30), articles.gotSince, time.Minute)

	var body struct {
		Count    int              `json:"count"`
		Articles []domain.Article `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "id-1", body.Articles[0].Identity)
}

func TestArticles_EmptyResultIsArray(t *testing.T) {
	srv := newTestServer(&stubArticleReader{}, &stubRunReader{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles?subject=CR+Patil", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"articles":[]`)
}

func TestLatestRun(t *testing.T) {
	completed := time.Date(2025, 6, 2, 8, 5, 0, 0, time.UTC)
	runs := &stubRunReader{run: &domain.CollectionRun{
		ScheduledFor: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		Status:       domain.RunCompleted,
		NewCount:     7,
		CompletedAt:  &completed,
	}}
	srv := newTestServer(&stubArticleReader{}, runs)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.CollectionRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.RunCompleted, got.Status)
	assert.Equal(t, 7, got.NewCount)
}

func TestLatestRun_EmptyLogIs404(t *testing.T) {
	srv := newTestServer(&stubArticleReader{}, &stubRunReader{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsError(t *testing.T) {
	srv := newTestServer(&stubArticleReader{err: errors.New("db down")}, &stubRunReader{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
