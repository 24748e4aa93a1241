// Package retry runs a provider call with a per-attempt deadline and a
// bounded number of exponentially spaced retries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultMaxRetries   = 2
	DefaultInitialDelay = time.Second
	DefaultTimeout      = 60 * time.Second

	// MinTimeout is the floor applied to a configured per-attempt timeout.
	MinTimeout = 5 * time.Second
)

// TimeoutError is returned when an attempt loses the race against its
// deadline.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Request timed out after %dms", e.After.Milliseconds())
}

// Outcome classifies one attempt.
type Outcome string

const (
	Success   Outcome = "success"
	Retryable Outcome = "retryable"
	Terminal  Outcome = "terminal"
)

// Attempt describes one finished attempt. It is reported to the Observer and
// never stored.
type Attempt struct {
	Index   int
	Start   time.Time
	Elapsed time.Duration
	Outcome Outcome
	Err     error
}

// Observer receives every finished attempt.
type Observer func(Attempt)

// Orchestrator executes operations with deadlines and retries. The zero value
// is not usable; build one with NewOrchestrator.
type Orchestrator struct {
	MaxRetries   int
	InitialDelay time.Duration
	Timeout      time.Duration
	Observer     Observer

	sleep func(context.Context, time.Duration) error
}

// NewOrchestrator returns an Orchestrator with the default retry budget and
// the given per-attempt timeout, raised to MinTimeout if lower.
func NewOrchestrator(timeout time.Duration) *Orchestrator {
	if timeout < MinTimeout {
		timeout = MinTimeout
	}
	return &Orchestrator{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		Timeout:      timeout,
		sleep:        sleepCtx,
	}
}

// Backoff returns the delay before attempt n (n >= 1).
func (o *Orchestrator) Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	return o.InitialDelay << (n - 1)
}

// Budget is the worst-case wall time of one Execute call.
func (o *Orchestrator) Budget() time.Duration {
	total := time.Duration(o.MaxRetries+1) * o.Timeout
	for n := 1; n <= o.MaxRetries; n++ {
		total += o.Backoff(n)
	}
	return total
}

// Execute runs op until it succeeds, fails terminally or the retry budget is
// spent. The last error is returned unchanged.
func (o *Orchestrator) Execute(ctx context.Context, op func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for n := 0; n <= o.MaxRetries; n++ {
		if n > 0 {
			if err := o.sleep(ctx, o.Backoff(n)); err != nil {
				return "", err
			}
		}

		start := time.Now()
		text, err := o.attempt(ctx, op)
		a := Attempt{Index: n, Start: start, Elapsed: time.Since(start), Err: err}

		switch {
		case err == nil:
			a.Outcome = Success
			o.observe(a)
			return text, nil
		case ctx.Err() != nil:
			a.Outcome = Terminal
			o.observe(a)
			return "", err
		case IsTerminal(err):
			a.Outcome = Terminal
			o.observe(a)
			return "", err
		}

		a.Outcome = Retryable
		o.observe(a)
		lastErr = err
	}
	return "", lastErr
}

type result struct {
	text string
	err  error
}

// attempt races op against the per-attempt deadline. If op ignores its
// context the goroutine is left to finish on its own and its result dropped.
func (o *Orchestrator) attempt(ctx context.Context, op func(context.Context) (string, error)) (string, error) {
	actx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		text, err := op(actx)
		ch <- result{text, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && actx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return "", &TimeoutError{After: o.Timeout}
		}
		return r.text, r.err
	case <-actx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TimeoutError{After: o.Timeout}
	}
}

func (o *Orchestrator) observe(a Attempt) {
	if o.Observer != nil {
		o.Observer(a)
	}
}

type statusCoder interface {
	StatusCode() int
}

type terminal interface {
	Terminal() bool
}

// IsTerminal reports whether retrying err is pointless: authentication
// rejections, missing configuration, and anything whose message points at
// credentials.
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code == 401 || code == 403 {
			return true
		}
	}
	var t terminal
	if errors.As(err, &t) && t.Terminal() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "api key") || strings.Contains(msg, "credential")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
