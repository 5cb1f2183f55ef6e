package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"news_tracker/internal/domain"
	"news_tracker/internal/source"
)

// SearchClient is the retrying per-channel provider. A call covers one
// subject on one channel over one date window.
type SearchClient interface {
	Search(ctx context.Context, subject domain.TrackedSubject, channel domain.Channel, window source.DateRange) ([]source.RawArticle, error)
}

// Source is a supplementary feed queried once per subject, without
// per-channel fan-out.
type Source interface {
	Name() string
	Fetch(ctx context.Context, subject domain.TrackedSubject) ([]source.RawArticle, error)
}

type ArticleStore interface {
	FilterKnown(ctx context.Context, identities []string) (map[string]struct{}, error)
	InsertAll(ctx context.Context, articles []domain.Article) (int, error)
	EvictOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type RunStore interface {
	Record(ctx context.Context, run *domain.CollectionRun) error
	LastSuccessful(ctx context.Context) (*domain.CollectionRun, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, article *domain.Article) error
	Close() error
}

// Reporter writes a spreadsheet covering the given window and returns the
// file path.
type Reporter interface {
	Generate(ctx context.Context, from, to time.Time) (string, error)
}
