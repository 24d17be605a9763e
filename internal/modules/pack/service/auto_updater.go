package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"memestickers/internal/modules/pack/domain"
	"memestickers/internal/platform/logging"
)

type AutoUpdaterOptions struct {
	Enabled        bool
	Force          bool
	Interval       time.Duration
	MaxConcurrency int
	Logger         *slog.Logger
}

// AutoUpdater reloads on start and, when enabled, periodically updates every
// pack that has an origin url.
type AutoUpdater struct {
	packs    *PackService
	enabled  bool
	force    bool
	interval time.Duration
	limit    int
	logger   *slog.Logger
}

func NewAutoUpdater(packs *PackService, opts AutoUpdaterOptions) *AutoUpdater {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	limit := opts.MaxConcurrency
	if limit < 1 {
		limit = 1
	}
	return &AutoUpdater{
		packs:    packs,
		enabled:  opts.Enabled,
		force:    opts.Force,
		interval: interval,
		limit:    limit,
		logger:   logging.OrDiscard(opts.Logger),
	}
}

// Run reloads the packs and then runs Loop.
func (a *AutoUpdater) Run(ctx context.Context) error {
	if err := a.packs.Reload(ctx); err != nil {
		return err
	}
	return a.Loop(ctx)
}

// Loop blocks until ctx is done. When enabled the first update pass runs
// immediately.
func (a *AutoUpdater) Loop(ctx context.Context) error {
	if !a.enabled {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		a.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce updates every updatable pack with bounded concurrency. Failures
// are reported in the results and never stop the pass.
func (a *AutoUpdater) RunOnce(ctx context.Context) []domain.UpdateResult {
	names := a.packs.UpdatablePacks()
	var (
		mu      sync.Mutex
		results = make([]domain.UpdateResult, 0, len(names))
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.limit)
	for _, name := range names {
		group.Go(func() error {
			result, err := a.packs.UpdatePack(groupCtx, name, a.force, nil)
			if err != nil {
				a.logger.WarnContext(groupCtx, "auto update failed", "pack", name, "err", err)
			} else if result.Changed {
				a.logger.InfoContext(groupCtx, "auto updated pack", "pack", name, "from", result.OldVersion, "to", result.NewVersion)
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Pack < results[j].Pack })
	return results
}
