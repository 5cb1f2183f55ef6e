package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_tracker/internal/domain"
)

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

func (s *ArticleStore) Exists(ctx context.Context, identity string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM articles WHERE identity = $1)", identity)
	return exists, err
}

// FilterKnown returns the subset of identities already stored.
func (s *ArticleStore) FilterKnown(ctx context.Context, identities []string) (map[string]struct{}, error) {
	if len(identities) == 0 {
		return make(map[string]struct{}), nil
	}

	query := `SELECT identity FROM articles WHERE identity = ANY($1)`

	var known []string
	if err := s.db.SelectContext(ctx, &known, query, pq.Array(identities)); err != nil {
		return nil, err
	}

	result := make(map[string]struct{}, len(known))
	for _, id := range known {
		result[id] = struct{}{}
	}
	return result, nil
}

// InsertAll writes the batch in a single statement so a failing row fails the
// whole batch. Rows whose identity is already stored are skipped; the
// returned count covers only rows actually written.
func (s *ArticleStore) InsertAll(ctx context.Context, articles []domain.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	const cols = 11
	var sb strings.Builder
	sb.WriteString(`INSERT INTO articles (
		identity, subject, channel, language, topic, title, url, snippet,
		source, published_at, collected_at
	) VALUES `)
	valueArgs := make([]interface{}, 0, len(articles)*cols)

	for i, a := range articles {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(itoa(i*cols + j + 1))
		}
		sb.WriteString(")")
		valueArgs = append(valueArgs,
			a.Identity, a.Subject, a.Channel, a.Language, a.Topic,
			a.Title, a.URL, a.Snippet, a.Source, a.PublishedAt, a.CollectedAt,
		)
	}
	sb.WriteString(" ON CONFLICT (identity) DO NOTHING")

	exec := GetExecutor(ctx, s.db)
	res, err := exec.ExecContext(ctx, sb.String(), valueArgs...)
	if err != nil {
		return 0, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// EvictOlderThan removes articles whose publication date falls strictly
// before the cutoff. Articles published exactly at the cutoff are retained.
func (s *ArticleStore) EvictOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	exec := GetExecutor(ctx, s.db)
	res, err := exec.ExecContext(ctx,
		"DELETE FROM articles WHERE published_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ArticleStore) QueryByDateRange(ctx context.Context, from, to time.Time) ([]domain.Article, error) {
	query := `
		SELECT identity, subject, channel, language, topic, title, url, snippet,
		       source, published_at, collected_at
		FROM articles
		WHERE published_at >= $1 AND published_at <= $2
		ORDER BY published_at DESC`

	var articles []domain.Article
	err := s.db.SelectContext(ctx, &articles, query, from, to)
	return articles, err
}

func (s *ArticleStore) QueryBySubject(ctx context.Context, subject domain.Subject, since time.Time) ([]domain.Article, error) {
	query := `
		SELECT identity, subject, channel, language, topic, title, url, snippet,
		       source, published_at, collected_at
		FROM articles
		WHERE subject = $1 AND published_at >= $2
		ORDER BY published_at DESC`

	var articles []domain.Article
	err := s.db.SelectContext(ctx, &articles, query, subject, since)
	return articles, err
}

func (s *ArticleStore) Statistics(ctx context.Context) (*domain.Statistics, error) {
	stats := &domain.Statistics{
		BySubject: make(map[domain.Subject]int),
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT subject, COUNT(*) FROM articles GROUP BY subject")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var subject domain.Subject
		var count int
		if err := rows.Scan(&subject, &count); err != nil {
			return nil, err
		}
		stats.BySubject[subject] = count
		stats.TotalArticles += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.GetContext(ctx, &stats.UniqueChannels,
		"SELECT COUNT(DISTINCT channel) FROM articles"); err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &stats.Languages,
		"SELECT DISTINCT language FROM articles ORDER BY language"); err != nil {
		return nil, err
	}

	return stats, nil
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return itoa(i/10) + string(rune('0'+i%10))
}
