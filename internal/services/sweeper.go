package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/logger"
)

// Sweeper periodically distributes prizes for quests that have ended.
type Sweeper struct {
	service  *QuestService
	interval time.Duration
	now      func() time.Time
}

// NewSweeper creates a Sweeper that runs every interval.
func NewSweeper(service *QuestService, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval, now: time.Now}
}

// Run sweeps until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := sw.SweepOnce(ctx)
			if n > 0 {
				logger.Infof("Settlement sweep distributed %d quest(s).", n)
			}
		}
	}
}

// SweepOnce distributes every ended, undistributed quest that has at least
// one completer. Quests nobody completed are left alone. It returns the
// number of quests distributed.
func (sw *Sweeper) SweepOnce(ctx context.Context) int {
	now := sw.now()
	distributed := 0

	sw.service.each(func(tenantID string, l *Ledger) {
		for _, q := range l.Quests() {
			if ctx.Err() != nil {
				return
			}
			if q.PrizesDistributed || now.Before(q.EndTime) || len(q.CompletionOrder) == 0 {
				continue
			}
			if _, err := l.DistributePrizes(q.ID); err != nil {
				if errors.Is(err, ErrAlreadyDistributed) {
					continue
				}
				logger.Errorf("tenant %s: settle quest %d: %v", tenantID, q.ID, err)
				continue
			}
			distributed++
		}
	})
	return distributed
}
