package newscatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"news_tracker/internal/domain"
	"news_tracker/internal/source"
)

const (
	Origin  = "newscatcher"
	country = "IN"
)

// dateFormats accepted for published_date across provider plans.
var dateFormats = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02",
}

// Config holds search API configuration.
type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	PageSize        int
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	MinInterval     time.Duration // minimum spacing between outbound calls
	MaxLookbackDays int           // provider's maximum search window
}

// Client queries the search API for one (subject, channel) pair at a time.
// Transient failures are retried with exponential backoff; the pacer is
// shared so concurrent workers never exceed the provider call rate.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	apiKey          string
	pageSize        int
	maxAttempts     int
	initialBackoff  time.Duration
	maxBackoff      time.Duration
	maxLookbackDays int
	pacer           *rate.Limiter
	logger          *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:         cfg.BaseURL,
		apiKey:          cfg.APIKey,
		pageSize:        cfg.PageSize,
		maxAttempts:     attempts,
		initialBackoff:  cfg.InitialBackoff,
		maxBackoff:      cfg.MaxBackoff,
		maxLookbackDays: cfg.MaxLookbackDays,
		pacer:           rate.NewLimiter(rate.Every(interval), 1),
		logger:          logger.With("source", Origin),
	}
}

// Search fetches raw articles for one subject on one channel. The returned
// error is always a *source.FetchError: Fatal surfaces immediately, Exhausted
// after the retry budget is spent.
func (c *Client) Search(ctx context.Context, subject domain.TrackedSubject, channel domain.Channel, window source.DateRange) ([]source.RawArticle, error) {
	if c.maxLookbackDays > 0 && window.Days() > c.maxLookbackDays {
		return nil, c.fail(source.KindFatal, subject, channel, 0,
			fmt.Errorf("window of %d days exceeds provider maximum of %d", window.Days(), c.maxLookbackDays))
	}

	var lastErr *source.FetchError

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, c.fail(source.KindTransient, subject, channel, 0, err)
		}

		articles, err := c.doSearch(ctx, subject, channel, window)
		if err == nil {
			return articles, nil
		}

		fe := asFetchError(err, subject, channel)
		if fe.Kind == source.KindFatal {
			c.logger.Error("fatal fetch error",
				"subject", subject.Name,
				"channel", channel.Name,
				"error", fe.Err,
			)
			return nil, fe
		}
		lastErr = fe

		if attempt == c.maxAttempts {
			break
		}

		delay := c.backoff(attempt)
		if fe.Kind == source.KindRateLimited && fe.RetryAfter > delay {
			delay = fe.RetryAfter
		}

		c.logger.Warn("fetch failed, retrying",
			"subject", subject.Name,
			"channel", channel.Name,
			"kind", fe.Kind.String(),
			"attempt", attempt,
			"backoff", delay,
			"error", fe.Err,
		)

		select {
		case <-ctx.Done():
			return nil, c.fail(source.KindTransient, subject, channel, 0, ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, c.fail(source.KindExhausted, subject, channel, 0,
		fmt.Errorf("after %d attempts: %w", c.maxAttempts, lastErr.Err))
}

func (c *Client) doSearch(ctx context.Context, subject domain.TrackedSubject, channel domain.Channel, window source.DateRange) ([]source.RawArticle, error) {
	payload := searchRequest{
		Query:     subject.Query,
		Sources:   channel.Domain,
		Countries: country,
		Lang:      string(channel.Language),
		From:      window.From.Format("2006-01-02"),
		To:        window.To.Format("2006-01-02"),
		SortBy:    "date",
		PageSize:  c.pageSize,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &source.FetchError{Kind: source.KindFatal, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &source.FetchError{Kind: source.KindFatal, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "NewsTracker/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &source.FetchError{Kind: source.KindTransient, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var apiResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &source.FetchError{Kind: source.KindTransient, Err: fmt.Errorf("decode response: %w", err)}
	}

	return c.transform(apiResp.Articles, channel), nil
}

// classifyStatus maps HTTP status codes onto the retry taxonomy: 429 is
// rate-limited with an optional Retry-After hint, remaining 4xx are fatal,
// 5xx transient.
func classifyStatus(resp *http.Response) *source.FetchError {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &source.FetchError{
			Kind:       source.KindRateLimited,
			RetryAfter: retryAfterHint(resp),
			Err:        fmt.Errorf("status %d", resp.StatusCode),
		}
	case resp.StatusCode >= 500:
		return &source.FetchError{Kind: source.KindTransient, Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		return &source.FetchError{Kind: source.KindFatal, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
}

func retryAfterHint(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.initialBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	if delay > c.maxBackoff {
		delay = c.maxBackoff
	}
	return delay
}

func (c *Client) transform(articles []apiArticle, channel domain.Channel) []source.RawArticle {
	out := make([]source.RawArticle, 0, len(articles))

	for _, a := range articles {
		if a.Title == "" || a.Link == "" {
			continue
		}

		snippet := a.Excerpt
		if snippet == "" {
			snippet = a.Description
		}

		name := a.NameSource
		if name == "" {
			name = a.CleanURL
		}
		if name == "" {
			name = channel.Name
		}

		out = append(out, source.RawArticle{
			Title:       a.Title,
			URL:         a.Link,
			Snippet:     snippet,
			SourceName:  name,
			Language:    a.Language,
			Origin:      Origin,
			PublishedAt: parseDate(a.PublishedDate),
		})
	}

	return out
}

func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func asFetchError(err error, subject domain.TrackedSubject, channel domain.Channel) *source.FetchError {
	fe, ok := err.(*source.FetchError)
	if !ok {
		fe = &source.FetchError{Kind: source.KindTransient, Err: err}
	}
	fe.Subject = string(subject.Name)
	fe.Channel = channel.Name
	return fe
}

func (c *Client) fail(kind source.ErrorKind, subject domain.TrackedSubject, channel domain.Channel, retryAfter time.Duration, err error) *source.FetchError {
	return &source.FetchError{
		Kind:       kind,
		Subject:    string(subject.Name),
		Channel:    channel.Name,
		RetryAfter: retryAfter,
		Err:        err,
	}
}
