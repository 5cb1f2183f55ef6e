package newsdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"news_tracker/internal/domain"
	"news_tracker/internal/source"
)

const (
	Origin  = "newsdata_io"
	country = "in"
)

// Config holds NewsData.io client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is the tertiary article source. Like the RSS feed it is
// best-effort: errors bubble up to the orchestrator, which logs and moves on.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger.With("source", Origin),
	}
}

func (c *Client) Name() string {
	return Origin
}

// Fetch queries the latest-news endpoint for one subject. The provider
// accepts plain names better than quoted query syntax, so the subject name is
// sent rather than the search query.
func (c *Client) Fetch(ctx context.Context, subject domain.TrackedSubject) ([]source.RawArticle, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("q", string(subject.Name))
	params.Set("country", country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	articles := c.transform(apiResp.Results)

	c.logger.Debug("fetched articles",
		"subject", subject.Name,
		"total_results", apiResp.TotalResults,
		"usable", len(articles),
	)

	return articles, nil
}

func (c *Client) transform(results []apiResult) []source.RawArticle {
	articles := make([]source.RawArticle, 0, len(results))

	for _, r := range results {
		if r.Title == "" || r.Link == "" {
			continue
		}

		snippet := r.Description
		if snippet == "" {
			snippet = r.Content
		}

		var publishedAt time.Time
		if t, err := time.Parse("2006-01-02 15:04:05", r.PubDate); err == nil {
			publishedAt = t.UTC()
		}

		articles = append(articles, source.RawArticle{
			Title:       r.Title,
			URL:         r.Link,
			Snippet:     snippet,
			SourceName:  r.SourceID,
			Language:    r.Language,
			Origin:      Origin,
			PublishedAt: publishedAt,
		})
	}

	return articles
}
