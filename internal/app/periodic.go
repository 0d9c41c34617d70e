package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/bft-labs/shipctl/internal/ports"
)

// DefaultCheckInterval is how often every module is checked when periodic
// checks are enabled.
const DefaultCheckInterval = 10 * time.Second

// Checker queues a state check of every module.
type Checker interface {
	Check(ctx context.Context) (bool, error)
}

// PeriodicCheck wraps a gocron scheduler that queues module checks on a
// fixed interval.
type PeriodicCheck struct {
	scheduler gocron.Scheduler
	checker   Checker
	timeout   time.Duration
	logger    ports.Logger
}

// NewPeriodicCheck schedules checks every interval. The job does not run
// until Start is called.
func NewPeriodicCheck(checker Checker, interval time.Duration, logger ports.Logger) (*PeriodicCheck, error) {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create check scheduler: %w", err)
	}

	p := &PeriodicCheck{
		scheduler: s,
		checker:   checker,
		timeout:   interval,
		logger:    logger,
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(p.run),
		gocron.WithName("module-check"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule module check: %w", err)
	}
	return p, nil
}

// Start begins scheduling.
func (p *PeriodicCheck) Start() {
	p.logger.Info("periodic module check started", ports.Duration("interval", p.timeout))
	p.scheduler.Start()
}

// Stop shuts the scheduler down and waits for a running job.
func (p *PeriodicCheck) Stop() error {
	return p.scheduler.Shutdown()
}

func (p *PeriodicCheck) run() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	queued, err := p.checker.Check(ctx)
	if err != nil {
		p.logger.Warn("periodic check not queued", ports.Err(err))
		return
	}
	if !queued {
		p.logger.Debug("periodic check skipped")
	}
}
