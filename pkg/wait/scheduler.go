package wait

import (
	"context"
	"time"

	"github.com/jwebster45206/story-graph/pkg/state"
)

const (
	// DefaultDebugDelay replaces every delay when debug mode is on.
	DefaultDebugDelay = 5 * time.Second

	debugPollInterval = time.Second
	pollInterval      = 30 * time.Second
)

// Scheduler computes and inspects real-time wait deadlines on player state.
// It is the only place that applies the debug speedup, so every delay in a
// story is affected the same way.
type Scheduler struct {
	Debug      bool
	DebugDelay time.Duration
	Now        func() time.Time // Injected clock; defaults to time.Now
}

// NewScheduler creates a scheduler using the wall clock.
func NewScheduler(debug bool, debugDelay time.Duration) *Scheduler {
	if debugDelay <= 0 {
		debugDelay = DefaultDebugDelay
	}
	return &Scheduler{Debug: debug, DebugDelay: debugDelay, Now: time.Now}
}

func (s *Scheduler) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Clock returns the scheduler's current time in UTC.
func (s *Scheduler) Clock() time.Time {
	return s.now()
}

// Effective returns the real duration of a delay declared in seconds.
func (s *Scheduler) Effective(seconds int) time.Duration {
	if s.Debug {
		if s.DebugDelay <= 0 {
			return DefaultDebugDelay
		}
		return s.DebugDelay
	}
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds) * time.Second
}

// Schedule sets the wait deadline to now + Effective(seconds) and returns it.
// The deadline is absolute so it survives process restarts.
func (s *Scheduler) Schedule(ps *state.PlayerState, seconds int) time.Time {
	until := s.now().Add(s.Effective(seconds))
	ps.WaitingUntil = &until
	return until
}

// IsWaiting reports whether a deadline is set and still in the future.
func (s *Scheduler) IsWaiting(ps *state.PlayerState) bool {
	return ps.IsWaiting(s.now())
}

// Remaining returns the time left until the deadline. It is zero without a
// deadline and negative once the deadline has passed.
func (s *Scheduler) Remaining(ps *state.PlayerState) time.Duration {
	if ps.WaitingUntil == nil {
		return 0
	}
	return ps.WaitingUntil.Sub(s.now())
}

// Clear removes the deadline.
func (s *Scheduler) Clear(ps *state.PlayerState) {
	ps.WaitingUntil = nil
}

// PollInterval returns how long an active wait should sleep before checking
// again: one second in debug mode, otherwise thirty seconds, and never longer
// than the time remaining.
func (s *Scheduler) PollInterval(until time.Time) time.Duration {
	interval := pollInterval
	if s.Debug {
		interval = debugPollInterval
	}
	remaining := until.Sub(s.now())
	if remaining <= 0 {
		return 0
	}
	if remaining < interval {
		return remaining
	}
	return interval
}

// ActiveWait blocks until the deadline passes or ctx is cancelled. onTick, if
// set, is called with the remaining time before every sleep.
func (s *Scheduler) ActiveWait(ctx context.Context, until time.Time, onTick func(remaining time.Duration)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		interval := s.PollInterval(until)
		if interval <= 0 {
			return nil
		}
		if onTick != nil {
			onTick(until.Sub(s.now()))
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
