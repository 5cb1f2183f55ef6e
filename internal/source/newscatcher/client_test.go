package newscatcher

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_tracker/internal/domain"
	"news_tracker/internal/source"
)

var (
	testSubject = domain.TrackedSubject{Name: "Narendra Modi", Query: `"Narendra Modi"`}
	testChannel = domain.Channel{Name: "NDTV", Domain: "ndtv.com", Language: domain.LanguageEnglish}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(url string, maxAttempts int) *Client {
	return New(Config{
		BaseURL:         url,
		APIKey:          "test-key",
		Timeout:         time.Second,
		PageSize:        100,
		MaxAttempts:     maxAttempts,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      10 * time.Millisecond,
		MinInterval:     time.Microsecond,
		MaxLookbackDays: 30,
	}, testLogger())
}

func TestSearch_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"total_hits": 2,
			"articles": [
				{"title": "PM inaugurates expressway", "link": "https://ndtv.com/a1", "excerpt": "snippet one", "name_source": "NDTV", "language": "en", "published_date": "2026-08-28 09:15:00"},
				{"title": "Cabinet reshuffle expected", "link": "https://ndtv.com/a2", "description": "snippet two", "clean_url": "ndtv.com", "published_date": "2026-08-29"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	articles, err := client.Search(context.Background(), testSubject, testChannel, source.LastDays(time.Now(), 1))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "PM inaugurates expressway", articles[0].Title)
	assert.Equal(t, "snippet one", articles[0].Snippet)
	assert.Equal(t, "NDTV", articles[0].SourceName)
	assert.Equal(t, Origin, articles[0].Origin)
	assert.Equal(t, time.Date(2026, 8, 28, 9, 15, 0, 0, time.UTC), articles[0].PublishedAt)

	assert.Equal(t, "ndtv.com", articles[1].SourceName)
	assert.Equal(t, "snippet two", articles[1].Snippet)
}

func TestSearch_TransientExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var attempts []time.Time

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts = append(attempts, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 4)
	client.initialBackoff = 5 * time.Millisecond
	client.maxBackoff = time.Second

	_, err := client.Search(context.Background(), testSubject, testChannel, source.LastDays(time.Now(), 1))
	require.Error(t, err)
	assert.True(t, source.IsExhausted(err))

	var fe *source.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "NDTV", fe.Channel)
	assert.Equal(t, "Narendra Modi", fe.Subject)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, attempts, 4)

	// Inter-attempt delays must not decrease.
	var prev time.Duration
	for i := 1; i < len(attempts); i++ {
		gap := attempts[i].Sub(attempts[i-1])
		assert.GreaterOrEqual(t, gap+2*time.Millisecond, prev)
		prev = gap
	}
}

func TestSearch_MisconfiguredAttemptsStillTriesOnce(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	for _, attempts := range []int{0, -3} {
		client := newTestClient(server.URL, attempts)

		_, err := client.Search(context.Background(), testSubject, testChannel, source.LastDays(time.Now(), 1))
		require.Error(t, err)
		assert.True(t, source.IsExhausted(err))
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestSearch_FatalDoesNotRetry(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)

	_, err := client.Search(context.Background(), testSubject, testChannel, source.LastDays(time.Now(), 1))
	require.Error(t, err)

	kind, ok := source.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, source.KindFatal, kind)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestSearch_RateLimitHonorsRetryAfter(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var attempts []time.Time

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		n := len(attempts)
		attempts = append(attempts, time.Now())
		mu.Unlock()

		if n == 0 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","articles":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)

	articles, err := client.Search(context.Background(), testSubject, testChannel, source.LastDays(time.Now(), 1))
	require.NoError(t, err)
	assert.Empty(t, articles)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, attempts, 2)
	assert.GreaterOrEqual(t, attempts[1].Sub(attempts[0]), time.Second)
}

func TestSearch_WindowExceedsLookback(t *testing.T) {
	t.Parallel()

	client := newTestClient("http://unused.invalid", 3)

	_, err := client.Search(context.Background(), testSubject, testChannel, source.LastDays(time.Now(), 90))
	require.Error(t, err)

	kind, ok := source.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, source.KindFatal, kind)
}

func TestParseDate_Formats(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Date(2026, 8, 28, 9, 15, 0, 0, time.UTC), parseDate("2026-08-28 09:15:00"))
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), parseDate("2026-08-29"))
	assert.True(t, parseDate("not a date").IsZero())
	assert.True(t, parseDate("").IsZero())
}
