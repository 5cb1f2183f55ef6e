package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"news_tracker/internal/domain"
	"news_tracker/internal/source"
)

// KnownSet answers which identities are already persisted.
type KnownSet interface {
	FilterKnown(ctx context.Context, identities []string) (map[string]struct{}, error)
}

// Candidate is a raw article with its dedup identity computed.
type Candidate struct {
	Identity string
	Subject  domain.Subject
	Raw      source.RawArticle
}

// NewCandidate computes the identity for a fetched article. The channel part
// of the fingerprint is the canonical channel name, so the same story surfacing
// under a provider alias or a bare domain collapses to one identity regardless
// of which source fetched it; untracked sources hash the raw string and are
// rejected later at classification. Articles with no publish date use the
// fetch day, so re-fetches within the same day still collapse.
func NewCandidate(subject domain.Subject, raw source.RawArticle, channels *domain.ChannelSet, fetchedAt time.Time) Candidate {
	day := raw.PublishedAt
	if day.IsZero() {
		day = fetchedAt
	}
	channel := raw.SourceName
	if channels != nil {
		if resolved, ok := channels.Resolve(raw.SourceName); ok {
			channel = resolved.Name
		}
	}
	return Candidate{
		Identity: Identity(raw.Title, channel, day),
		Subject:  subject,
		Raw:      raw,
	}
}

// Identity derives the stable fingerprint: normalized title, lowercased
// channel, and the publish date at day granularity. The same wire story
// re-fetched under a near-duplicate title (casing, extra whitespace,
// trailing punctuation) collapses to one identity.
func Identity(title, channel string, published time.Time) string {
	key := fmt.Sprintf("%s|%s|%s",
		NormalizeTitle(title),
		strings.ToLower(strings.TrimSpace(channel)),
		published.UTC().Format("2006-01-02"),
	)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// NormalizeTitle lowercases, collapses internal whitespace, and strips
// trailing punctuation.
func NormalizeTitle(title string) string {
	fields := strings.Fields(strings.ToLower(title))
	normalized := strings.Join(fields, " ")
	return strings.TrimRight(normalized, ".,;:!?-–—\"'")
}

// Deduplicator is a pure filter over candidates plus read-only lookups
// against the store.
type Deduplicator struct {
	known KnownSet
}

func New(known KnownSet) *Deduplicator {
	return &Deduplicator{known: known}
}

// FilterNew returns the candidates whose identity is not yet stored,
// preserving input order. Duplicates within the batch collapse to their first
// occurrence. The second return value is the number of duplicates dropped.
func (d *Deduplicator) FilterNew(ctx context.Context, candidates []Candidate) ([]Candidate, int, error) {
	if len(candidates) == 0 {
		return nil, 0, nil
	}

	identities := make([]string, len(candidates))
	for i, c := range candidates {
		identities[i] = c.Identity
	}

	known, err := d.known.FilterKnown(ctx, identities)
	if err != nil {
		return nil, 0, fmt.Errorf("lookup known identities: %w", err)
	}

	seen := make(map[string]struct{}, len(candidates))
	fresh := make([]Candidate, 0, len(candidates))
	duplicates := 0

	for _, c := range candidates {
		if _, ok := known[c.Identity]; ok {
			duplicates++
			continue
		}
		if _, ok := seen[c.Identity]; ok {
			duplicates++
			continue
		}
		seen[c.Identity] = struct{}{}
		fresh = append(fresh, c)
	}

	return fresh, duplicates, nil
}
