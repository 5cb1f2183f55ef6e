package report

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"news_tracker/internal/domain"
)

type stubReader struct {
	articles []domain.Article
	err      error
}

func (r *stubReader) QueryByDateRange(context.Context, time.Time, time.Time) ([]domain.Article, error) {
	return r.articles, r.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestGenerate_WritesWorkbook(t *testing.T) {
	published := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	reader := &stubReader{articles: []domain.Article{
		{
			Identity:    "id-1",
			Subject:     "Narendra Modi",
			Channel:     "NDTV",
			Language:    domain.LanguageEnglish,
			Topic:       "Politics",
			Title:       "Modi addresses parliament",
			URL:         "https://example.com/1",
			Source:      "newscatcher",
			PublishedAt: published,
		},
		{
			Identity:    "id-2",
			Subject:     "CR Patil",
			Channel:     "Aaj Tak",
			Language:    domain.LanguageHindi,
			Topic:       "Event",
			Title:       "पाटिल की रैली",
			URL:         "https://example.com/2",
			Source:      "google_rss",
			PublishedAt: published,
		},
	}}

	dir := t.TempDir()
	gen := NewGenerator(reader, dir, testLogger())

	to := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	path, err := gen.Generate(context.Background(), to.AddDate(0, 0, -7), to)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "news_report_2025-06-02_0800.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Articles")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "Title", rows[0][5])
	assert.Equal(t, "2025-06-01", rows[1][0])
	assert.Equal(t, "Narendra Modi", rows[1][1])
	assert.Equal(t, "Modi addresses parliament", rows[1][5])
	assert.Equal(t, "पाटिल की रैली", rows[2][5])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, "Total articles", summary[1][0])
	assert.Equal(t, "2", summary[1][1])
}

func TestGenerate_EmptyWindowStillProducesFile(t *testing.T) {
	dir := t.TempDir()
	gen := NewGenerator(&stubReader{}, dir, testLogger())

	to := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	path, err := gen.Generate(context.Background(), to.AddDate(0, 0, -7), to)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Articles")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestGenerate_ReaderErrorPropagates(t *testing.T) {
	gen := NewGenerator(&stubReader{err: os.ErrDeadlineExceeded}, t.TempDir(), testLogger())

	_, err := gen.Generate(context.Background(), time.Now().AddDate(0, 0, -7), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
}
