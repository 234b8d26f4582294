package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/matusita0314/eging-map-app/internal/config"
	"github.com/matusita0314/eging-map-app/internal/lifecycle"
)

// Job names
const (
	JobLifecycleScan         = "tournament-lifecycle-scan"
	JobEngagementRecalculate = "engagement-recalculate"
)

// Jobs is the work the scheduler triggers
type Jobs interface {
	RunLifecycleScan(ctx context.Context) (lifecycle.Result, error)
	RecalculateEngagementTournaments(ctx context.Context) (int, error)
}

// Scheduler runs the periodic tournament jobs on cron schedules
type Scheduler struct {
	jobs      Jobs
	config    *config.SchedulerConfig
	logger    *slog.Logger
	scheduler gocron.Scheduler
	mu        sync.Mutex
	running   bool
}

// NewScheduler registers the periodic jobs. Cron expressions are evaluated
// in the configured time zone.
func NewScheduler(jobs Jobs, cfg *config.SchedulerConfig, logger *slog.Logger) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	w := &Scheduler{
		jobs:      jobs,
		config:    cfg,
		logger:    logger,
		scheduler: s,
	}

	schedules := []struct {
		name string
		cron string
	}{
		{JobLifecycleScan, cfg.LifecycleCron},
		{JobEngagementRecalculate, cfg.EngagementCron},
	}
	for _, sc := range schedules {
		name := sc.name
		_, err := s.NewJob(
			gocron.CronJob(sc.cron, false),
			gocron.NewTask(func() {
				if err := w.RunOnce(context.Background(), name); err != nil {
					w.logger.Error("scheduled job failed", "job", name, "error", err)
				}
			}),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("scheduling %s (%q): %w", name, sc.cron, err)
		}
	}

	return w, nil
}

// Start begins running jobs on their schedules
func (w *Scheduler) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	w.scheduler.Start()
	w.logger.Info("scheduler started",
		"lifecycle_cron", w.config.LifecycleCron,
		"engagement_cron", w.config.EngagementCron,
		"timezone", w.config.Timezone,
	)
}

// Stop waits for running jobs and shuts the scheduler down
func (w *Scheduler) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}

	if err := w.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("stopping scheduler: %w", err)
	}
	w.running = false

	w.logger.Info("scheduler stopped")
	return nil
}

// RunOnce runs the named job immediately, bounded by the job timeout
func (w *Scheduler) RunOnce(ctx context.Context, name string) error {
	if w.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()

	switch name {
	case JobLifecycleScan:
		res, err := w.jobs.RunLifecycleScan(ctx)
		if err != nil {
			return fmt.Errorf("lifecycle scan: %w", err)
		}
		w.logger.Info("lifecycle scan completed",
			"started", len(res.Started),
			"judging", len(res.Judging),
			"duration", time.Since(start),
		)
	case JobEngagementRecalculate:
		n, err := w.jobs.RecalculateEngagementTournaments(ctx)
		if err != nil {
			return fmt.Errorf("engagement recalculation: %w", err)
		}
		w.logger.Info("engagement recalculation completed",
			"tournaments", n,
			"duration", time.Since(start),
		)
	default:
		return fmt.Errorf("unknown job %q", name)
	}

	return nil
}
