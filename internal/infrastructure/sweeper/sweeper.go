package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/activitytracker/tracker-api/internal/api/metrics"
	"github.com/activitytracker/tracker-api/internal/core/ports"
)

const (
	DefaultSchedule = "@every 1h"
	runTimeout      = time.Minute
)

// ExpiredTokenPurger is the slice of ports.RefreshTokenStore the sweeper needs.
type ExpiredTokenPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

var _ ExpiredTokenPurger = (ports.RefreshTokenStore)(nil)

// Sweeper periodically removes refresh tokens whose expiry has passed. Expired
// rows are already unusable, so purging only reclaims storage.
type Sweeper struct {
	store ExpiredTokenPurger
	cron  *cron.Cron
	now   func() time.Time
	log   zerolog.Logger
}

// New registers the purge job on schedule (standard cron spec or @every).
func New(store ExpiredTokenPurger, schedule string, log zerolog.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	s := &Sweeper{
		store: store,
		cron:  cron.New(cron.WithLocation(time.UTC)),
		now:   time.Now,
		log:   log,
	}
	if _, err := s.cron.AddFunc(schedule, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule refresh token sweep %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce performs a single purge and reports how many rows were removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("refresh token sweep failed")
		return 0, err
	}
	metrics.RefreshTokensPurgedTotal.Add(float64(n))
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("expired refresh tokens purged")
	}
	return n, nil
}
