package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper is implemented by the billing accrual engine.
type Sweeper interface {
	SweepAdmitted(ctx context.Context) (processed, skipped int, err error)
}

// AccrualRunner drives the daily room-charge sweep on a cron schedule.
type AccrualRunner struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  zerolog.Logger
	timeout time.Duration
}

// NewAccrualRunner schedules sweeper on the given cron spec (standard 5-field
// syntax). The sweep itself isolates failures per patient; a run-level error
// here means the admission list could not even be fetched.
func NewAccrualRunner(spec string, sweeper Sweeper, logger zerolog.Logger) (*AccrualRunner, error) {
	r := &AccrualRunner{
		cron:    cron.New(),
		sweeper: sweeper,
		logger:  logger,
		timeout: 30 * time.Minute,
	}
	if _, err := r.cron.AddFunc(spec, r.run); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *AccrualRunner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	processed, skipped, err := r.sweeper.SweepAdmitted(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("accrual sweep failed")
		return
	}
	r.logger.Info().
		Int("processed", processed).
		Int("skipped", skipped).
		Dur("took", time.Since(start)).
		Msg("accrual sweep complete")
}

// Start begins the schedule in its own goroutine.
func (r *AccrualRunner) Start() {
	r.cron.Start()
	r.logger.Info().Msg("accrual scheduler started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *AccrualRunner) Stop() {
	<-r.cron.Stop().Done()
}
