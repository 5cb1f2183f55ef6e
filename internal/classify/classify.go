package classify

import (
	"errors"
	"fmt"
	"strings"

	"news_tracker/internal/domain"
	"news_tracker/internal/source"
)

// ErrUnknownChannel marks an article from an outlet outside the tracked
// allow-list. Such articles are dropped before persistence, never stored.
var ErrUnknownChannel = errors.New("unknown channel")

// Categorizer turns raw provider payloads into domain articles: subject is
// provenance (the query the article was fetched for), channel is normalized
// through the allow-list, language comes from channel metadata with the
// provider hint as backup. Pure transform, no side effects.
type Categorizer struct {
	channels        *domain.ChannelSet
	defaultLanguage domain.Language
}

func New(channels *domain.ChannelSet, defaultLanguage domain.Language) *Categorizer {
	if defaultLanguage == "" {
		defaultLanguage = domain.DefaultLanguage
	}
	return &Categorizer{
		channels:        channels,
		defaultLanguage: defaultLanguage,
	}
}

// Classify builds the article for one raw payload. Identity and CollectedAt
// are owned by the pipeline and left unset here.
func (c *Categorizer) Classify(raw source.RawArticle, subject domain.Subject) (domain.Article, error) {
	channel, ok := c.channels.Resolve(raw.SourceName)
	if !ok {
		return domain.Article{}, fmt.Errorf("%w: %q", ErrUnknownChannel, raw.SourceName)
	}

	return domain.Article{
		Subject:     subject,
		Channel:     channel.Name,
		Language:    c.language(channel, raw),
		Topic:       Topic(raw.Title),
		Title:       strings.TrimSpace(raw.Title),
		URL:         raw.URL,
		Snippet:     raw.Snippet,
		Source:      raw.Origin,
		PublishedAt: raw.PublishedAt,
	}, nil
}

func (c *Categorizer) language(channel domain.Channel, raw source.RawArticle) domain.Language {
	if channel.Language != "" {
		return channel.Language
	}
	switch strings.ToLower(strings.TrimSpace(raw.Language)) {
	case "en", "english":
		return domain.LanguageEnglish
	case "hi", "hindi":
		return domain.LanguageHindi
	}
	return c.defaultLanguage
}
