// Package scheduler drives the recurring automation sweep: on each
// cadence slot it takes a distributed run lock, sleeps a random jitter
// so deployments sharing the cadence do not hit the remote API at the
// same instant, loads the automatable population and fans it out
// through a bounded pool of account processors.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hoyoclaw/claimd/internal/audit"
	"github.com/hoyoclaw/claimd/internal/model"
	"github.com/hoyoclaw/claimd/internal/processor"
)

// PopulationStore yields the accounts eligible for one scheduled run.
// Implemented by repository.AccountRepository.
type PopulationStore interface {
	FindAutomatable(ctx context.Context) ([]model.Account, error)
}

// RunLocker arbitrates cadence slots between deployments sharing one
// database. Implemented by redis.Client.
type RunLocker interface {
	AcquireRunLock(ctx context.Context, slot string, ttl time.Duration) (bool, error)
}

// Metrics summarizes one completed run.
type Metrics struct {
	RunID        string
	Population   int
	Processed    int64
	Skipped      int64
	Failed       int64
	NewSuccesses int64
	Duration     time.Duration
}

type Scheduler struct {
	accounts  PopulationStore
	proc      processor.AccountRunner
	locker    RunLocker
	interval  time.Duration
	jitterMax time.Duration
	bound     int

	sleep  func(ctx context.Context, d time.Duration)
	jitter func(max time.Duration) time.Duration
	done   chan struct{}
}

type Config struct {
	Accounts  PopulationStore
	Processor processor.AccountRunner
	Locker    RunLocker
	Interval  time.Duration
	JitterMax time.Duration
	// Bound is the maximum number of accounts processed simultaneously.
	Bound int
}

func New(cfg Config) *Scheduler {
	return &Scheduler{
		accounts:  cfg.Accounts,
		proc:      cfg.Processor,
		locker:    cfg.Locker,
		interval:  cfg.Interval,
		jitterMax: cfg.JitterMax,
		bound:     cfg.Bound,
		sleep:     sleepCtx,
		jitter:    randomJitter,
		done:      make(chan struct{}),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func (s *Scheduler) Start() {
	go s.run()
	log.Info().
		Dur("interval", s.interval).
		Dur("jitter_max", s.jitterMax).
		Int("bound", s.bound).
		Msg("scheduler started")
}

func (s *Scheduler) Stop() {
	close(s.done)
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runSlot()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.runSlot()
		}
	}
}

// slotKey identifies the current cadence slot. Deployments race on it
// via the run lock so exactly one of them executes the slot.
func (s *Scheduler) slotKey(now time.Time) string {
	return fmt.Sprintf("%d", now.Truncate(s.interval).Unix())
}

func (s *Scheduler) runSlot() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	slot := s.slotKey(time.Now())
	if s.locker != nil {
		won, err := s.locker.AcquireRunLock(ctx, slot, s.interval)
		if err != nil {
			log.Error().Err(err).Str("slot", slot).Msg("run lock unavailable, skipping slot")
			return
		}
		if !won {
			log.Debug().Str("slot", slot).Msg("slot taken by another deployment")
			return
		}
	}

	if delay := s.jitter(s.jitterMax); delay > 0 {
		log.Info().Dur("delay", delay).Msg("applying startup jitter")
		s.sleep(ctx, delay)
	}
	if ctx.Err() != nil {
		return
	}

	if _, err := s.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("scheduled run failed")
	}
}

// RunOnce executes one full sweep over the automatable population and
// returns its metrics. Per-account failures are swallowed and counted;
// the run itself only fails when the population cannot be loaded.
func (s *Scheduler) RunOnce(ctx context.Context) (*Metrics, error) {
	runID := uuid.NewString()
	start := time.Now()

	population, err := s.accounts.FindAutomatable(ctx)
	if err != nil {
		return nil, fmt.Errorf("load population: %w", err)
	}

	audit.Log(ctx, audit.Event{
		Type:  audit.EventRunStarted,
		RunID: runID,
		Details: map[string]interface{}{
			"population": len(population),
		},
	})

	var processed, skipped, failed, newSuccesses atomic.Int64

	pool := NewPool(s.bound)
	for _, account := range population {
		accountID := account.ID
		pool.Go(func() error {
			record, err := s.proc.Process(ctx, accountID, processor.Options{
				Automatic: true,
				RunID:     runID,
			})
			if errors.Is(err, processor.ErrRateLimited) {
				skipped.Add(1)
				return nil
			}
			if err != nil {
				failed.Add(1)
				return fmt.Errorf("account %s: %w", accountID, err)
			}
			if record == nil {
				skipped.Add(1)
				return nil
			}
			processed.Add(1)
			newSuccesses.Add(int64(record.NewSuccesses))
			return nil
		})
	}
	pool.Wait()

	metrics := &Metrics{
		RunID:        runID,
		Population:   len(population),
		Processed:    processed.Load(),
		Skipped:      skipped.Load(),
		Failed:       failed.Load(),
		NewSuccesses: newSuccesses.Load(),
		Duration:     time.Since(start),
	}

	audit.Log(ctx, audit.Event{
		Type:  audit.EventRunFinished,
		RunID: runID,
		Details: map[string]interface{}{
			"population":    metrics.Population,
			"processed":     metrics.Processed,
			"skipped":       metrics.Skipped,
			"failed":        metrics.Failed,
			"new_successes": metrics.NewSuccesses,
			"duration":      metrics.Duration,
		},
	})
	log.Info().
		Str("run_id", runID).
		Int("population", metrics.Population).
		Int64("processed", metrics.Processed).
		Int64("failed", metrics.Failed).
		Int64("new_successes", metrics.NewSuccesses).
		Dur("duration", metrics.Duration).
		Msg("run complete")

	return metrics, nil
}
