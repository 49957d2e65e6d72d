// Package scheduler wires up the cron job that periodically re-syncs the
// store against the upstream catalog.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"jobmirror/internal/usecase"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron around the sync usecase. The reconciler's own
// guard makes an overlapping tick a no-op rather than a second writer.
type Scheduler struct {
	cron   *cron.Cron
	sync   usecase.SyncUsecase
	logger *log.Logger
	spec   string
}

func New(sync usecase.SyncUsecase, intervalMinutes int, logger *log.Logger) *Scheduler {
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.DefaultLogger)),
		sync:   sync,
		logger: logger,
		spec:   fmt.Sprintf("@every %dm", intervalMinutes),
	}
}

// Start registers the tick and runs one sync immediately so the mirror is
// populated without waiting for the first interval.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	if s.logger != nil {
		s.logger.Printf("[Scheduler] started, spec=%s", s.spec)
	}

	go s.runOnce(ctx)

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	if s.logger != nil {
		s.logger.Printf("[Scheduler] stopped")
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	started := time.Now()
	counts, err := s.sync.RunSync(ctx)
	if err != nil {
		if errors.Is(err, usecase.ErrSyncInProgress) {
			if s.logger != nil {
				s.logger.Printf("[Scheduler] tick skipped, sync still running")
			}
			return
		}
		if s.logger != nil {
			s.logger.Printf("[Scheduler] sync failed after %s: %v", time.Since(started), err)
		}
		return
	}
	if s.logger != nil {
		s.logger.Printf("[Scheduler] sync done in %s fetched=%d new=%d updated=%d expired=%d",
			time.Since(started), counts.Fetched, counts.New, counts.Updated, counts.Expired)
	}
}
