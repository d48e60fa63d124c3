// Package convergence brings a client's displayed credit balance in line
// with the server after the user returns from the hosted checkout. Credits
// are granted asynchronously by the payment webhook, so the balance is
// polled with growing intervals until it changes or a deadline passes.
package convergence

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	MessageSuccess  = "Payment successful! Your credits have been added."
	MessageCanceled = "Payment was canceled."
	MessageTimedOut = "Your payment was received, but the new balance is not visible yet. Please refresh manually in a moment."
)

type State int

const (
	StateIdle State = iota
	StateWaiting
	StateRefreshed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateRefreshed:
		return "refreshed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "idle"
	}
}

// BalanceFetcher reads the authoritative balance.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context) (int64, error)
}

type Config struct {
	InitialDelay      time.Duration
	Multiplier        float64
	MaxDelay          time.Duration
	MaxWait           time.Duration
	SuccessMessageTTL time.Duration
	CancelMessageTTL  time.Duration
}

func DefaultConfig() Config {
	return Config{
		InitialDelay:      2 * time.Second,
		Multiplier:        2,
		MaxDelay:          8 * time.Second,
		MaxWait:           30 * time.Second,
		SuccessMessageTTL: 5 * time.Second,
		CancelMessageTTL:  3 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = d.Multiplier
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.MaxWait <= 0 {
		c.MaxWait = d.MaxWait
	}
	if c.SuccessMessageTTL <= 0 {
		c.SuccessMessageTTL = d.SuccessMessageTTL
	}
	if c.CancelMessageTTL <= 0 {
		c.CancelMessageTTL = d.CancelMessageTTL
	}
	return c
}

// Snapshot is what a client renders.
type Snapshot struct {
	State   State
	Balance int64
	Message string
	Fetches int
}

// Converger owns at most one pending task. Every HandleReturn cancels the
// previous one before scheduling anew.
type Converger struct {
	fetcher  BalanceFetcher
	cfg      Config
	observer func(Snapshot)

	mu     sync.Mutex
	snap   Snapshot
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Converger)

// WithObserver registers a callback invoked after every state change.
func WithObserver(fn func(Snapshot)) Option {
	return func(c *Converger) {
		c.observer = fn
	}
}

func New(fetcher BalanceFetcher, cfg Config, opts ...Option) *Converger {
	c := &Converger{fetcher: fetcher, cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Converger) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// HandleReturn reacts to a return marker. lastKnown is the balance the
// client displayed before leaving for checkout.
func (c *Converger) HandleReturn(marker Marker, lastKnown int64) {
	if marker == MarkerNone {
		return
	}

	c.mu.Lock()
	c.stopLocked()
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.done = cancel, done

	switch marker {
	case MarkerSuccess:
		c.snap = Snapshot{State: StateWaiting, Balance: lastKnown, Message: MessageSuccess}
	case MarkerCanceled:
		c.snap = Snapshot{State: StateIdle, Balance: lastKnown, Message: MessageCanceled}
	}
	snap := c.snap
	c.mu.Unlock()
	c.notify(snap)

	switch marker {
	case MarkerSuccess:
		go c.poll(ctx, gen, done, lastKnown)
	case MarkerCanceled:
		go c.clearAfter(ctx, gen, done, c.cfg.CancelMessageTTL)
	}
}

// Stop cancels the pending task, if any.
func (c *Converger) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Wait blocks until the current task has finished or ctx is done.
func (c *Converger) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Converger) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

func (c *Converger) poll(ctx context.Context, gen uint64, done chan struct{}, lastKnown int64) {
	defer close(done)

	deadline := time.Now().Add(c.cfg.MaxWait)
	delay := c.cfg.InitialDelay
	for {
		if remaining := time.Until(deadline); delay > remaining {
			delay = remaining
		}
		if !sleepWithContext(ctx, delay) {
			return
		}

		balance, err := c.fetcher.FetchBalance(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Debugf("[Convergence] balance refresh failed, keeping last known value: %v", err)
		}

		changed := err == nil && balance != lastKnown
		if !c.update(gen, func(s *Snapshot) {
			s.Fetches++
			if changed {
				s.State = StateRefreshed
				s.Balance = balance
			}
		}) {
			return
		}
		if changed {
			c.clearMessage(ctx, gen, c.cfg.SuccessMessageTTL)
			return
		}

		if !time.Now().Before(deadline) {
			c.update(gen, func(s *Snapshot) {
				s.State = StateTimedOut
				s.Message = MessageTimedOut
			})
			return
		}
		delay = time.Duration(float64(delay) * c.cfg.Multiplier)
		if delay > c.cfg.MaxDelay {
			delay = c.cfg.MaxDelay
		}
	}
}

func (c *Converger) clearAfter(ctx context.Context, gen uint64, done chan struct{}, ttl time.Duration) {
	defer close(done)
	c.clearMessage(ctx, gen, ttl)
}

func (c *Converger) clearMessage(ctx context.Context, gen uint64, ttl time.Duration) {
	if !sleepWithContext(ctx, ttl) {
		return
	}
	c.update(gen, func(s *Snapshot) {
		s.Message = ""
	})
}

// update applies fn unless a newer task has taken over.
func (c *Converger) update(gen uint64, fn func(*Snapshot)) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	fn(&c.snap)
	snap := c.snap
	c.mu.Unlock()
	c.notify(snap)
	return true
}

func (c *Converger) notify(s Snapshot) {
	if c.observer != nil {
		c.observer(s)
	}
}

func sleepWithContext(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
