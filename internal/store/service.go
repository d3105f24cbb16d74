package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/varoOP/electrorss/internal/domain"
	"github.com/varoOP/electrorss/internal/feed"
)

const maxFetchWorkers = 4

// Service orchestrates one refresh round: fetch every source, parse or
// fall back per category, merge, sort, persist.
type Service interface {
	Refresh(ctx context.Context, days int) []domain.Item
}

type service struct {
	log       zerolog.Logger
	config    *domain.Config
	fetcher   *feed.Fetcher
	parser    *feed.Parser
	snapshots domain.SnapshotRepository
	state     domain.StateRepository
}

func NewService(log zerolog.Logger, config *domain.Config, fetcher *feed.Fetcher, parser *feed.Parser,
	snapshots domain.SnapshotRepository, state domain.StateRepository) Service {
	return &service{
		log:       log.With().Str("module", "store").Logger(),
		config:    config,
		fetcher:   fetcher,
		parser:    parser,
		snapshots: snapshots,
		state:     state,
	}
}

// sourceResult is one source's contribution to a refresh round.
type sourceResult struct {
	items []domain.Item
	meta  domain.ConditionalMeta
}

// Refresh fetches all sources concurrently, replaces each successfully
// fetched category with its freshly parsed items, falls back to the
// filtered previous snapshot for the rest, and persists the merged
// result. No single source failure affects the others or the caller:
// the worst outcome is a stale category.
func (s *service) Refresh(ctx context.Context, days int) []domain.Item {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -days)
	years := s.config.AllowedYears(now)

	prev := s.snapshots.LoadSnapshot(ctx)
	state := s.state.LoadState(ctx)
	sources := s.config.Sources

	results := make([]sourceResult, len(sources))
	sem := make(chan struct{}, min(maxFetchWorkers, len(sources)))
	var wg sync.WaitGroup

	for i, src := range sources {
		wg.Add(1)
		go func(i int, src domain.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.refreshSource(ctx, src, state[src.URL], prev, cutoff, years)
		}(i, src)
	}
	wg.Wait()

	// Join-then-merge: state and snapshot are only touched after every
	// source has completed.
	for i, src := range sources {
		state[src.URL] = results[i].meta
	}
	if err := s.state.StoreState(ctx, state); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist feed state")
	}

	combined := []domain.Item{}
	for _, res := range results {
		combined = append(combined, res.items...)
	}
	domain.SortItems(combined)

	if err := s.snapshots.StoreSnapshot(ctx, combined); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist snapshot")
	}

	s.log.Info().Int("items", len(combined)).Int("sources", len(sources)).Int("days", days).Msg("refresh complete")
	return combined
}

func (s *service) refreshSource(ctx context.Context, src domain.Source, meta domain.ConditionalMeta,
	prev []domain.Item, cutoff time.Time, years []string) sourceResult {
	fallback := func(m domain.ConditionalMeta) sourceResult {
		return sourceResult{items: domain.FilterCategory(prev, src.Category, cutoff), meta: m}
	}

	res, err := s.fetcher.Fetch(ctx, src.URL, meta)
	if err != nil {
		s.log.Warn().Err(err).Str("category", src.Category).Str("url", src.URL).Msg("fetch failed, keeping previous items")
		return fallback(meta)
	}

	if res.NotModified {
		s.log.Debug().Str("category", src.Category).Msg("feed not modified")
		return fallback(res.Meta)
	}

	items, err := s.parser.Parse(src.Category, res.Body, cutoff, years)
	if err != nil {
		s.log.Warn().Err(err).Str("category", src.Category).Msg("parse failed, keeping previous items")
		return fallback(res.Meta)
	}

	s.log.Debug().Str("category", src.Category).Int("items", len(items)).Msg("parsed feed")
	return sourceResult{items: items, meta: res.Meta}
}
