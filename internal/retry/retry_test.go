package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// fastOrchestrator records backoff delays instead of sleeping.
func fastOrchestrator(timeout time.Duration) (*Orchestrator, *[]time.Duration) {
	var delays []time.Duration
	o := NewOrchestrator(timeout)
	o.Timeout = timeout
	o.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return o, &delays
}

func TestExecute_TimesOutEveryAttempt(t *testing.T) {
	o, delays := fastOrchestrator(20 * time.Millisecond)
	var calls atomic.Int32

	_, err := o.Execute(context.Background(), func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-ctx.Done()
		return "", ctx.Err()
	})

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TimeoutError", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("delays = %v, want %v", *delays, want)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, (*delays)[i], d)
		}
	}
}

func TestExecute_IgnoresContextStillTimesOut(t *testing.T) {
	o, _ := fastOrchestrator(10 * time.Millisecond)
	o.MaxRetries = 0
	release := make(chan struct{})
	defer close(release)

	_, err := o.Execute(context.Background(), func(ctx context.Context) (string, error) {
		<-release
		return "late", nil
	})
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TimeoutError", err)
	}
	if te.After != 10*time.Millisecond {
		t.Errorf("After = %v", te.After)
	}
}

func TestExecute_APIKeyErrorNotRetried(t *testing.T) {
	o, delays := fastOrchestrator(time.Second)
	var calls atomic.Int32
	authErr := errors.New("invalid API key")

	_, err := o.Execute(context.Background(), func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "", authErr
	})
	if err != authErr {
		t.Errorf("err = %v, want the original error unchanged", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
	if len(*delays) != 0 {
		t.Errorf("slept %v, want no backoff", *delays)
	}
}

type codeErr int

func (c codeErr) Error() string   { return "upstream failed" }
func (c codeErr) StatusCode() int { return int(c) }

type notConfigured struct{}

func (notConfigured) Error() string  { return "general provider is not configured" }
func (notConfigured) Terminal() bool { return true }

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"401", codeErr(401), true},
		{"403 wrapped", errors.Join(errors.New("ctx"), codeErr(403)), true},
		{"500", codeErr(500), false},
		{"429", codeErr(429), false},
		{"terminal marker", notConfigured{}, true},
		{"credential message", errors.New("missing credentials"), true},
		{"timeout", &TimeoutError{After: time.Second}, false},
		{"network", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTerminal(tt.err); got != tt.want {
				t.Errorf("IsTerminal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExecute_RecoversAfterRetryableFailure(t *testing.T) {
	o, _ := fastOrchestrator(time.Second)
	var calls atomic.Int32
	var outcomes []Outcome
	o.Observer = func(a Attempt) { outcomes = append(outcomes, a.Outcome) }

	text, err := o.Execute(context.Background(), func(ctx context.Context) (string, error) {
		if calls.Add(1) < 3 {
			return "", codeErr(503)
		}
		return "ok", nil
	})
	if err != nil || text != "ok" {
		t.Fatalf("Execute = %q, %v", text, err)
	}
	want := []Outcome{Retryable, Retryable, Success}
	if len(outcomes) != len(want) {
		t.Fatalf("outcomes = %v, want %v", outcomes, want)
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Errorf("outcome[%d] = %s, want %s", i, outcomes[i], want[i])
		}
	}
}

func TestExecute_ReturnsLastError(t *testing.T) {
	o, _ := fastOrchestrator(time.Second)
	var calls atomic.Int32
	_, err := o.Execute(context.Background(), func(ctx context.Context) (string, error) {
		return "", codeErr(500 + int(calls.Add(1)))
	})
	if code := err.(codeErr).StatusCode(); code != 503 {
		t.Errorf("last error code = %d, want 503", code)
	}
}

func TestExecute_ParentCancelled(t *testing.T) {
	o := NewOrchestrator(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	_, err := o.Execute(ctx, func(ctx context.Context) (string, error) {
		calls.Add(1)
		cancel()
		return "", errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) && err.Error() != "boom" {
		t.Errorf("err = %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestNewOrchestrator_Floor(t *testing.T) {
	if o := NewOrchestrator(time.Second); o.Timeout != MinTimeout {
		t.Errorf("Timeout = %v, want %v", o.Timeout, MinTimeout)
	}
	o := NewOrchestrator(60 * time.Second)
	if got, want := o.Budget(), 183*time.Second; got != want {
		t.Errorf("Budget() = %v, want %v", got, want)
	}
}
