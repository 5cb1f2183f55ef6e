package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"news_tracker/internal/classify"
	"news_tracker/internal/config"
	"news_tracker/internal/dedup"
	"news_tracker/internal/domain"
	"news_tracker/internal/source"
)

// CollectorService drives one collection cycle end to end: fan-out fetch,
// dedup, classification, atomic persist, then eviction and reporting.
type CollectorService struct {
	search     SearchClient
	extras     []Source
	dedup      *dedup.Deduplicator
	categorize *classify.Categorizer
	store      ArticleStore
	runs       RunStore
	txManager  TransactionManager
	publisher  Publisher
	reporter   Reporter
	subjects   []domain.TrackedSubject
	channels   *domain.ChannelSet
	logger     *slog.Logger
	config     config.CollectConfig
	now        func() time.Time
}

func NewCollectorService(
	search SearchClient,
	extras []Source,
	deduplicator *dedup.Deduplicator,
	categorizer *classify.Categorizer,
	store ArticleStore,
	runs RunStore,
	txManager TransactionManager,
	publisher Publisher,
	reporter Reporter,
	subjects []domain.TrackedSubject,
	channels *domain.ChannelSet,
	logger *slog.Logger,
	cfg config.CollectConfig,
) *CollectorService {
	return &CollectorService{
		search:     search,
		extras:     extras,
		dedup:      deduplicator,
		categorize: categorizer,
		store:      store,
		runs:       runs,
		txManager:  txManager,
		publisher:  publisher,
		reporter:   reporter,
		subjects:   subjects,
		channels:   channels,
		logger:     logger,
		config:     cfg,
		now:        time.Now,
	}
}

// Collect runs one cycle for the given scheduling slot. A returned error
// means the cycle hit a storage fault; channel-level fetch failures are
// absorbed into the run record instead.
func (s *CollectorService) Collect(ctx context.Context, scheduledFor time.Time) (*domain.CollectionRun, error) {
	startTime := s.now().UTC()
	run := &domain.CollectionRun{
		ScheduledFor: scheduledFor.UTC(),
		StartedAt:    startTime,
		Status:       domain.RunRunning,
	}
	if err := s.runs.Record(ctx, run); err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}

	s.logger.Info("starting collection",
		"scheduled_for", run.ScheduledFor,
		"subjects", len(s.subjects),
		"channels", len(s.channels.All()),
		"lookback_days", s.config.LookbackDays,
	)

	candidates, failed := s.fetchAll(ctx, startTime)
	run.Fetched = len(candidates)
	run.FailedChannels = failed

	if err := ctx.Err(); err != nil {
		return s.finalizeFailed(ctx, run, fmt.Errorf("collection aborted: %w", err))
	}

	fresh, duplicates, err := s.dedup.FilterNew(ctx, candidates)
	if err != nil {
		return s.finalizeFailed(ctx, run, fmt.Errorf("deduplicate: %w", err))
	}
	run.DuplicateCount = duplicates

	articles := make([]domain.Article, 0, len(fresh))
	for _, cand := range fresh {
		article, err := s.categorize.Classify(cand.Raw, cand.Subject)
		if err != nil {
			run.RejectedCount++
			if errors.Is(err, classify.ErrUnknownChannel) {
				s.logger.Debug("rejected article from untracked channel",
					"source_name", cand.Raw.SourceName, "title", cand.Raw.Title)
			} else {
				s.logger.Warn("classification failed", "error", err)
			}
			continue
		}
		article.Identity = cand.Identity
		article.CollectedAt = startTime
		if article.PublishedAt.IsZero() {
			// Undated articles carry the ingestion time so retention
			// ages them from when they were collected.
			article.PublishedAt = startTime
		}
		articles = append(articles, article)
	}

	if err := ctx.Err(); err != nil {
		return s.finalizeFailed(ctx, run, fmt.Errorf("collection aborted: %w", err))
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		inserted, err := s.store.InsertAll(txCtx, articles)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		run.NewCount = inserted
		return nil
	})
	if err != nil {
		return s.finalizeFailed(ctx, run, err)
	}

	s.publish(ctx, articles)
	s.evict(ctx, run.ScheduledFor)
	s.report(ctx, run)

	status := domain.RunCompleted
	if len(run.FailedChannels) > 0 {
		status = domain.RunPartiallyFailed
	}
	run.Finalize(status, s.now())
	if err := s.runs.Record(ctx, run); err != nil {
		s.logger.Error("failed to record run outcome", "error", err)
	}

	s.logger.Info("collection completed",
		"status", run.Status,
		"fetched", run.Fetched,
		"new", run.NewCount,
		"duplicates", run.DuplicateCount,
		"rejected", run.RejectedCount,
		"failed_channels", run.FailedChannels,
		"duration", s.now().Sub(startTime),
	)

	return run, nil
}

// fetchAll fans out one task per subject x channel plus one per subject x
// supplementary source. Tasks never abort the group; failures are logged and
// retry-exhausted channels reported back by name.
func (s *CollectorService) fetchAll(ctx context.Context, fetchedAt time.Time) ([]dedup.Candidate, []string) {
	window := source.LastDays(fetchedAt, s.config.LookbackDays)
	channels := s.channels.All()

	type task struct {
		label   string
		subject domain.Subject
		run     func(context.Context) ([]source.RawArticle, error)
	}

	var tasks []task
	for _, subj := range s.subjects {
		subj := subj
		for _, ch := range channels {
			ch := ch
			tasks = append(tasks, task{
				label:   ch.Name,
				subject: subj.Name,
				run: func(ctx context.Context) ([]source.RawArticle, error) {
					return s.search.Search(ctx, subj, ch, window)
				},
			})
		}
		for _, src := range s.extras {
			src := src
			tasks = append(tasks, task{
				label:   src.Name(),
				subject: subj.Name,
				run: func(ctx context.Context) ([]source.RawArticle, error) {
					return src.Fetch(ctx, subj)
				},
			})
		}
	}

	results := make([][]dedup.Candidate, len(tasks))
	var mu sync.Mutex
	failed := make(map[string]struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.FetchWorkers)

	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			raws, err := t.run(gctx)
			if err != nil {
				if source.IsExhausted(err) {
					mu.Lock()
					failed[t.label] = struct{}{}
					mu.Unlock()
					s.logger.Warn("channel exhausted retry budget",
						"channel", t.label, "subject", t.subject, "error", err)
				} else {
					kind, _ := source.KindOf(err)
					s.logger.Error("fetch failed",
						"channel", t.label, "subject", t.subject,
						"kind", kind.String(), "error", err)
				}
				return nil
			}

			candidates := make([]dedup.Candidate, 0, len(raws))
			for _, raw := range raws {
				candidates = append(candidates, dedup.NewCandidate(t.subject, raw, s.channels, fetchedAt))
			}
			results[i] = candidates
			return nil
		})
	}
	_ = g.Wait()

	var all []dedup.Candidate
	for _, r := range results {
		all = append(all, r...)
	}

	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)

	return all, names
}

func (s *CollectorService) publish(ctx context.Context, articles []domain.Article) {
	if s.publisher == nil {
		return
	}
	published := 0
	for i := range articles {
		if err := s.publisher.Publish(ctx, &articles[i]); err != nil {
			s.logger.Error("publish failed", "identity", articles[i].Identity, "error", err)
			continue
		}
		published++
	}
	if published > 0 {
		s.logger.Debug("published articles", "count", published)
	}
}

func (s *CollectorService) evict(ctx context.Context, ref time.Time) {
	cutoff := ref.AddDate(0, 0, -s.config.RetentionDays)
	removed, err := s.store.EvictOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("eviction failed", "cutoff", cutoff, "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("evicted expired articles", "removed", removed, "cutoff", cutoff)
	}
}

func (s *CollectorService) report(ctx context.Context, run *domain.CollectionRun) {
	if s.reporter == nil || run.NewCount == 0 {
		return
	}
	from := run.ScheduledFor.AddDate(0, 0, -s.config.ReportWindowDays)
	path, err := s.reporter.Generate(ctx, from, run.ScheduledFor)
	if err != nil {
		s.logger.Error("report generation failed", "error", err)
		return
	}
	s.logger.Info("report written", "path", path)
}

func (s *CollectorService) finalizeFailed(ctx context.Context, run *domain.CollectionRun, cause error) (*domain.CollectionRun, error) {
	run.Finalize(domain.RunFailed, s.now())
	if err := s.runs.Record(ctx, run); err != nil {
		s.logger.Error("failed to record failed run", "error", err)
	}
	return run, cause
}
