package sheetdb

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refresher keeps repository cache entries warm by re-reading tables on a
// fixed interval, so request paths rarely pay for a bulk read.
type Refresher struct {
	repo     *Repository
	tables   []string
	interval time.Duration
	logger   *slog.Logger

	ticker    *time.Ticker
	done      chan struct{}
	refreshMu sync.Mutex
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewRefresher creates a refresher for tables, or for every registered
// table when none are named.
func NewRefresher(repo *Repository, interval time.Duration, tables ...string) *Refresher {
	if len(tables) == 0 {
		tables = repo.Registry().Tables()
	}
	return &Refresher{
		repo:     repo,
		tables:   tables,
		interval: interval,
		logger:   repo.logger,
		done:     make(chan struct{}),
	}
}

// Start begins the periodic refresh.
func (rf *Refresher) Start() {
	rf.ticker = time.NewTicker(rf.interval)
	rf.wg.Add(1)

	go func() {
		defer rf.wg.Done()
		for {
			select {
			case <-rf.ticker.C:
				rf.tick()
			case <-rf.done:
				return
			}
		}
	}()
}

// tick skips the cycle when the previous refresh is still running.
func (rf *Refresher) tick() {
	if !rf.refreshMu.TryLock() {
		return
	}
	defer rf.refreshMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), rf.interval)
	defer cancel()
	rf.refresh(ctx)
}

// RefreshNow re-reads every table once and returns how many failed.
func (rf *Refresher) RefreshNow(ctx context.Context) int {
	rf.refreshMu.Lock()
	defer rf.refreshMu.Unlock()
	return rf.refresh(ctx)
}

func (rf *Refresher) refresh(ctx context.Context) int {
	failed := 0
	for _, table := range rf.tables {
		if err := rf.repo.Refresh(ctx, table); err != nil {
			failed++
			rf.logger.Warn("background refresh failed", "table", table, "error", err)
		}
	}
	return failed
}

// Stop ends the periodic refresh and waits for a running cycle to finish.
func (rf *Refresher) Stop() {
	rf.stopOnce.Do(func() {
		if rf.ticker != nil {
			rf.ticker.Stop()
		}
		close(rf.done)
		rf.wg.Wait()

		rf.refreshMu.Lock()
		rf.refreshMu.Unlock()
	})
}
