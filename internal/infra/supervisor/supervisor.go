package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"homecare-booking/internal/pkg/config"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateDegraded is entered after the retry budget is exhausted; the
	// supervisor stops retrying until an operator calls Reset.
	StateDegraded State = "degraded"
)

var (
	ErrDegraded = errors.New("connection degraded; operator intervention required")
	ErrStopped  = errors.New("supervisor stopped")
)

// ConnectFunc opens (or re-opens) the underlying connection. It must respect
// ctx and leave the dependency usable on nil return.
type ConnectFunc func(ctx context.Context) error

// Supervisor serializes connection management for one external dependency.
// Exactly one connect attempt is in flight at any time; concurrent callers
// of EnsureConnected wait for it instead of racing to open duplicates.
type Supervisor struct {
	name    string
	connect ConnectFunc
	cfg     config.BackoffConfig
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	settled chan struct{} // closed when the current attempt cycle settles
	stopped bool
}

func New(name string, connect ConnectFunc, cfg config.BackoffConfig, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		name:    name,
		connect: connect,
		cfg:     cfg,
		logger:  logger,
		state:   StateDisconnected,
	}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) Healthy() bool {
	return s.State() == StateConnected
}

// EnsureConnected returns once the dependency is connected, joining any
// attempt already in flight. It fails fast with ErrDegraded after the retry
// budget is spent, and with ctx.Err() when the caller's bound expires.
func (s *Supervisor) EnsureConnected(ctx context.Context) error {
	s.mu.Lock()
	for {
		if s.stopped {
			s.mu.Unlock()
			return ErrStopped
		}
		switch s.state {
		case StateConnected:
			s.mu.Unlock()
			return nil
		case StateDegraded:
			s.mu.Unlock()
			return ErrDegraded
		case StateConnecting:
			settled := s.settled
			s.mu.Unlock()
			select {
			case <-settled:
			case <-ctx.Done():
				return ctx.Err()
			}
			s.mu.Lock()
		case StateDisconnected:
			s.state = StateConnecting
			s.settled = make(chan struct{})
			go s.runAttemptCycle()
		}
	}
}

// NotifyDown records a detected failure; the next EnsureConnected call
// triggers reconnection.
func (s *Supervisor) NotifyDown(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return
	}
	s.state = StateDisconnected
	s.logger.Warn("connection lost", "name", s.name, "error", errText(cause))
}

// Reset moves a degraded supervisor back to disconnected so reconnection
// may be attempted again.
func (s *Supervisor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDegraded {
		s.state = StateDisconnected
	}
}

func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// runAttemptCycle is the single connect path: bounded exponential backoff,
// ending in CONNECTED or DEGRADED. Waiters are released either way.
func (s *Supervisor) runAttemptCycle() {
	for attempt := 0; ; attempt++ {
		s.mu.Lock()
		if s.stopped {
			s.state = StateDisconnected
			close(s.settled)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Max)
		err := s.connect(ctx)
		cancel()

		s.mu.Lock()
		if err == nil {
			s.state = StateConnected
			close(s.settled)
			s.mu.Unlock()
			s.logger.Info("connection established", "name", s.name, "attempts", attempt+1)
			return
		}

		if attempt+1 >= s.cfg.MaxRetries {
			s.state = StateDegraded
			close(s.settled)
			s.mu.Unlock()
			s.logger.Error("connection degraded after max retries",
				"name", s.name, "attempts", attempt+1, "error", err.Error())
			return
		}
		s.mu.Unlock()

		wait := s.backoffDelay(attempt)
		s.logger.Warn("connection attempt failed, retrying",
			"name", s.name, "attempt", attempt+1, "retry_wait", wait, "error", err.Error())
		time.Sleep(wait)
	}
}

func (s *Supervisor) backoffDelay(attempt int) time.Duration {
	d := s.cfg.Base
	for i := 0; i < attempt && d < s.cfg.Max; i++ {
		d *= 2
	}
	if d > s.cfg.Max {
		d = s.cfg.Max
	}
	if s.cfg.Jitter && d > 1 {
		d = d/2 + rand.N(d/2)
	}
	return d
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
