package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ogaillard63/lbcwatch/internal/config"
	"github.com/ogaillard63/lbcwatch/internal/domain"
)

// CycleRunner runs one scan cycle over all active searches.
type CycleRunner interface {
	Run(ctx context.Context) (*domain.ScanStats, error)
}

// StateStore is the system_stats key/value table carrying the manual-scan flag.
type StateStore interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
	Delete(ctx context.Context, name string) error
}

// EventLog is the append-only log table shared with the web front-end.
type EventLog interface {
	Append(ctx context.Context, message, level string) error
}

// Scheduler decides each tick whether to run a scan cycle: immediately on a
// manual request, or once the jittered automatic interval elapsed outside the
// night-pause window. Cycles run synchronously, so at most one is in flight.
type Scheduler struct {
	runner CycleRunner
	state  StateStore
	events EventLog
	cfg    config.ScanConfig
	logger *slog.Logger

	// Timer state. Owned by the loop; only tests touch it directly.
	lastAutoScan time.Time
	nextInterval time.Duration

	// Injectable clock and interval source, per the usual testing seam.
	now      func() time.Time
	interval func() time.Duration
	sleep    func(ctx context.Context, d time.Duration)
}

func New(runner CycleRunner, state StateStore, events EventLog, cfg config.ScanConfig, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		runner: runner,
		state:  state,
		events: events,
		cfg:    cfg,
		logger: logger.With("component", "scheduler"),
		now:    time.Now,
		sleep:  wait,
	}
	s.interval = func() time.Duration {
		return uniformDuration(cfg.MinInterval, cfg.MaxInterval)
	}
	return s
}

// Start runs the tick loop until ctx is cancelled. Tick failures are logged
// and answered with a longer back-off; the loop itself never gives up.
func (s *Scheduler) Start(ctx context.Context) error {
	// Short warm-up interval so the first automatic scan fires shortly
	// after startup, unless the night pause suppresses it.
	s.lastAutoScan = s.now()
	s.nextInterval = s.cfg.WarmupDelay

	s.logger.Info("scheduler started",
		"poll_interval", s.cfg.PollInterval,
		"night_pause_start", s.cfg.NightPauseStart,
		"night_pause_end", s.cfg.NightPauseEnd,
	)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("scheduler stopped")
			return err
		}

		if err := s.tick(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("scheduler stopped")
				return ctx.Err()
			}
			s.logger.Error("tick failed", "error", err)
			s.appendEvent(ctx, fmt.Sprintf("main loop error: %v", err), domain.LevelError)
			s.sleep(ctx, s.cfg.ErrorBackoff)
			continue
		}

		s.sleep(ctx, s.cfg.PollInterval)
	}
}

// tick performs one scheduling decision and, when triggered, one full cycle.
func (s *Scheduler) tick(ctx context.Context) error {
	manual, err := s.consumeManualRequest(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	auto := !inNightPause(now.Hour(), s.cfg.NightPauseStart, s.cfg.NightPauseEnd) &&
		now.Sub(s.lastAutoScan) > s.nextInterval

	if !manual && !auto {
		return nil
	}

	trigger := fmt.Sprintf("AUTO (%dmin)", int(s.nextInterval.Minutes()))
	if manual {
		trigger = "MANUAL"
	}
	s.appendEvent(ctx, fmt.Sprintf("scan triggered [%s]", trigger), domain.LevelSystem)

	if _, err := s.runner.Run(ctx); err != nil {
		return fmt.Errorf("scan cycle: %w", err)
	}
	s.appendEvent(ctx, "scan cycle finished", domain.LevelSystem)

	s.lastAutoScan = s.now()
	s.nextInterval = s.interval()
	s.appendEvent(ctx, fmt.Sprintf("next automatic scan in %d minutes", int(s.nextInterval.Minutes())), domain.LevelSystem)

	if manual {
		if err := s.state.Delete(ctx, domain.StateScanRequest); err != nil {
			return fmt.Errorf("clear scan request: %w", err)
		}
	}

	return nil
}

// consumeManualRequest reads the scan_request flag and, when pending, moves
// it to processing. The read-then-write is best effort: a racing writer may
// slip in between, which the contract tolerates.
func (s *Scheduler) consumeManualRequest(ctx context.Context) (bool, error) {
	value, ok, err := s.state.Get(ctx, domain.StateScanRequest)
	if err != nil {
		return false, fmt.Errorf("read scan request: %w", err)
	}
	if !ok || value != domain.ScanRequestPending {
		return false, nil
	}
	if err := s.state.Set(ctx, domain.StateScanRequest, domain.ScanRequestProcessing); err != nil {
		return false, fmt.Errorf("mark scan request processing: %w", err)
	}
	return true, nil
}

// inNightPause reports whether hour falls in [start, end). A window with
// start >= end wraps midnight.
func inNightPause(hour, start, end int) bool {
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func (s *Scheduler) appendEvent(ctx context.Context, message, level string) {
	if err := s.events.Append(ctx, message, level); err != nil {
		s.logger.Warn("append db log", "error", err)
	}
}

// uniformDuration draws uniformly from [min, max].
func uniformDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}

func wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
