package domain

import (
	"strings"
	"time"
)

// Subject is one of the tracked public figures. The set of valid subjects is
// fixed at process start from configuration.
type Subject string

// Language is a tracked channel's language tag.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"

	DefaultLanguage = LanguageEnglish
)

// Article is a single collected news item. Identity is the stable dedup
// fingerprint; two stored articles never share one.
type Article struct {
	Identity    string    `db:"identity" json:"identity"`
	Subject     Subject   `db:"subject" json:"subject"`
	Channel     string    `db:"channel" json:"channel"`
	Language    Language  `db:"language" json:"language"`
	Topic       string    `db:"topic" json:"topic"`
	Title       string    `db:"title" json:"title"`
	URL         string    `db:"url" json:"url"`
	Snippet     string    `db:"snippet" json:"snippet"`
	Source      string    `db:"source" json:"source"` // newscatcher, google_rss, newsdata_io
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	CollectedAt time.Time `db:"collected_at" json:"collected_at"`
}

// TrackedSubject pairs a subject with the query string sent to providers.
type TrackedSubject struct {
	Name  Subject
	Query string
}

// Channel is a tracked news outlet from the allow-list.
type Channel struct {
	Name     string
	Domain   string // provider source identifier, e.g. "ndtv.com"
	Language Language
	Aliases  []string
}

// ChannelSet is an immutable lookup table over the tracked channels, built
// once at startup. Matching is case-insensitive over canonical names,
// domains, and aliases.
type ChannelSet struct {
	channels []Channel
	byAlias  map[string]*Channel
}

func NewChannelSet(channels []Channel) *ChannelSet {
	set := &ChannelSet{
		channels: channels,
		byAlias:  make(map[string]*Channel),
	}
	for i := range set.channels {
		ch := &set.channels[i]
		set.byAlias[normalizeAlias(ch.Name)] = ch
		if ch.Domain != "" {
			set.byAlias[normalizeAlias(ch.Domain)] = ch
		}
		for _, alias := range ch.Aliases {
			set.byAlias[normalizeAlias(alias)] = ch
		}
	}
	return set
}

// Resolve maps a raw provider source name to its canonical channel.
func (s *ChannelSet) Resolve(raw string) (Channel, bool) {
	ch, ok := s.byAlias[normalizeAlias(raw)]
	if !ok {
		return Channel{}, false
	}
	return *ch, true
}

// All returns the tracked channels in configuration order.
func (s *ChannelSet) All() []Channel {
	out := make([]Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

func normalizeAlias(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Statistics summarizes stored coverage for the dashboard.
type Statistics struct {
	TotalArticles  int             `json:"total_articles"`
	BySubject      map[Subject]int `json:"by_subject"`
	UniqueChannels int             `json:"unique_channels"`
	Languages      []string        `json:"languages"`
}
