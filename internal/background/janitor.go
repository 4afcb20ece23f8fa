package background

import (
	"context"
	"log/slog"
	"time"
)

// Purger is implemented by stores that accumulate expired entries and need a
// periodic sweep, i.e. the in-memory address throttle. Account suspensions
// are never swept; their expiry stays lazy on the request path.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// Janitor periodically purges expired throttle entries.
type Janitor struct {
	store    Purger
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

func NewJanitor(store Purger, logger *slog.Logger, interval time.Duration) *Janitor {
	return &Janitor{
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep. Blocks until Stop is called or the
// context is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.runSweep(ctx)
		case <-j.stopCh:
			j.logger.Info("throttle janitor stopped")
			return
		case <-ctx.Done():
			j.logger.Info("throttle janitor context cancelled")
			return
		}
	}
}

// Stop signals the janitor to exit.
func (j *Janitor) Stop() {
	close(j.stopCh)
}

func (j *Janitor) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	purged, err := j.store.PurgeExpired(sweepCtx)
	if err != nil {
		j.logger.Error("throttle sweep failed", slog.Any("error", err))
		return
	}

	if purged > 0 {
		j.logger.Info("purged expired throttle entries", slog.Int("count", purged))
	}
}
