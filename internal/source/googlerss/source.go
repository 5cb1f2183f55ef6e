package googlerss

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"news_tracker/internal/domain"
	"news_tracker/internal/source"
)

const (
	Origin  = "google_rss"
	baseURL = "https://news.google.com/rss/search"
	country = "IN"
)

var tagExpr = regexp.MustCompile(`<[^>]+>`)

// Source fetches the free Google News RSS feed per subject and language.
// It is a best-effort supplement to the search API: failures are logged by
// the caller and never fail a cycle.
type Source struct {
	parser     *gofeed.Parser
	baseURL    string
	languages  []domain.Language
	maxResults int
	logger     *slog.Logger
}

type Config struct {
	BaseURL    string
	Languages  []domain.Language
	MaxResults int
}

func New(cfg Config, logger *slog.Logger) *Source {
	base := cfg.BaseURL
	if base == "" {
		base = baseURL
	}
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []domain.Language{domain.LanguageEnglish, domain.LanguageHindi}
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}
	return &Source{
		parser:     gofeed.NewParser(),
		baseURL:    base,
		languages:  langs,
		maxResults: maxResults,
		logger:     logger.With("source", Origin),
	}
}

func (s *Source) Name() string {
	return Origin
}

// Fetch queries the feed once per configured language and flattens the
// results.
func (s *Source) Fetch(ctx context.Context, subject domain.TrackedSubject) ([]source.RawArticle, error) {
	var all []source.RawArticle

	for _, lang := range s.languages {
		articles, err := s.fetchFeed(ctx, subject, lang)
		if err != nil {
			return all, fmt.Errorf("feed %s/%s: %w", subject.Name, lang, err)
		}
		all = append(all, articles...)
	}

	return all, nil
}

func (s *Source) fetchFeed(ctx context.Context, subject domain.TrackedSubject, lang domain.Language) ([]source.RawArticle, error) {
	feedURL := fmt.Sprintf("%s?q=%s&hl=%s&gl=%s&ceid=%s:%s",
		s.baseURL,
		url.QueryEscape(subject.Query),
		lang, country, country, lang,
	)

	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := feed.Items
	if len(items) > s.maxResults {
		items = items[:s.maxResults]
	}

	articles := make([]source.RawArticle, 0, len(items))
	for _, item := range items {
		if item.Link == "" {
			continue
		}

		title, outlet := splitOutlet(item.Title)
		if title == "" {
			continue
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = item.PublishedParsed.UTC()
		}

		articles = append(articles, source.RawArticle{
			Title:       title,
			URL:         item.Link,
			Snippet:     stripTags(item.Description),
			SourceName:  outlet,
			Language:    string(lang),
			Origin:      Origin,
			PublishedAt: publishedAt,
		})
	}

	s.logger.Debug("fetched feed",
		"subject", subject.Name,
		"language", lang,
		"articles", len(articles),
	)

	return articles, nil
}

// splitOutlet separates "Headline - Outlet" titles; Google News appends the
// outlet name after the last dash.
func splitOutlet(title string) (string, string) {
	idx := strings.LastIndex(title, " - ")
	if idx < 0 {
		return strings.TrimSpace(title), ""
	}
	return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
}

func stripTags(s string) string {
	return strings.TrimSpace(tagExpr.ReplaceAllString(s, ""))
}
