package reconcile

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/ledger"
	"golang.org/x/sync/errgroup"
)

type PendingLister interface {
	ListPending(ctx context.Context, page ledger.PendingPage) ([]*domain.Record, error)
}

type SweeperOptions struct {
	Interval    time.Duration
	StaleAfter  time.Duration
	BatchSize   int
	Concurrency int
}

// Sweeper periodically reconciles records stuck in pending. It never fails a
// record by age alone. Each pass checks one batch and the next pass continues
// after it, so records that stay pending do not starve newer ones.
// Sweep is not safe for concurrent use.
type Sweeper struct {
	ledger     PendingLister
	reconciler *Reconciler
	opts       SweeperOptions
	log        *slog.Logger
	now        func() time.Time

	afterCreatedAt time.Time
	afterID        string
}

func NewSweeper(ledger PendingLister, reconciler *Reconciler, opts SweeperOptions, log *slog.Logger) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 15 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Sweeper{ledger: ledger, reconciler: reconciler, opts: opts, log: log, now: time.Now}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one pass and returns how many records it settled.
func (s *Sweeper) Sweep(ctx context.Context) int {
	recs, err := s.ledger.ListPending(ctx, ledger.PendingPage{
		OlderThan:      s.now().Add(-s.opts.StaleAfter),
		AfterCreatedAt: s.afterCreatedAt,
		AfterID:        s.afterID,
		Limit:          s.opts.BatchSize,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "failed to list pending records", "error", err)
		return 0
	}
	if len(recs) < s.opts.BatchSize {
		// end of the pending set, start over on the next pass
		s.afterCreatedAt, s.afterID = time.Time{}, ""
	} else {
		last := recs[len(recs)-1]
		s.afterCreatedAt, s.afterID = last.CreatedAt, last.ID
	}
	if len(recs) == 0 {
		return 0
	}

	var settled atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for _, rec := range recs {
		rec := rec
		g.Go(func() error {
			out, err := s.reconciler.Reconcile(ctx, rec.ID, Hint{})
			if err != nil {
				s.log.WarnContext(ctx, "sweep could not reconcile record", "record_id", rec.ID, "error", err)
				return nil
			}
			if out.Status.Settled() {
				settled.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(settled.Load())
	s.log.InfoContext(ctx, "pending sweep finished", "checked", len(recs), "settled", n)
	return n
}
