package rendezvous

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAwaitExecution_Success(t *testing.T) {
	r := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		r.Complete("req-1", "the-result")
	}()

	outcome := r.AwaitExecution(ctx, "req-1", func() error { return nil })
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.Result != "the-result" {
		t.Fatalf("unexpected result: %v", outcome.Result)
	}
}

func TestAwaitExecution_Timeout(t *testing.T) {
	r := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcome := r.AwaitExecution(ctx, "req-1", func() error { return nil })
	if outcome.Kind != OutcomeTimeout {
		t.Fatalf("expected timeout, got %+v", outcome)
	}
	if !errors.Is(outcome.CtxErr, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", outcome.CtxErr)
	}
}

func TestAwaitExecution_LateCallbackAfterTimeoutIsNoOp(t *testing.T) {
	r := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	outcome := r.AwaitExecution(ctx, "req-1", func() error { return nil })
	if outcome.Kind != OutcomeTimeout {
		t.Fatalf("expected timeout, got %+v", outcome)
	}

	// Late callback after the waiter gave up must not panic and must be a no-op.
	r.Complete("req-1", "too-late")

	if r.Pending() != 0 {
		t.Fatalf("expected no pending entries after late completion, got %d", r.Pending())
	}
}

func TestAwaitExecution_TriggerFailureRemovesSlot(t *testing.T) {
	r := New(nil)
	ctx := context.Background()

	outcome := r.AwaitExecution(ctx, "req-1", func() error { return errors.New("publish failed") })
	if outcome.Kind != OutcomeError {
		t.Fatalf("expected error outcome, got %+v", outcome)
	}
	if r.Pending() != 0 {
		t.Fatalf("expected slot removed after trigger failure, got %d pending", r.Pending())
	}
}

func TestAwaitExecution_RegisterHappensBeforeTrigger(t *testing.T) {
	// A callback racing a slow trigger must never lose the result: Complete
	// is called from inside trigger, before AwaitExecution itself would have
	// had a chance to register if ordering were reversed.
	r := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	outcome := r.AwaitExecution(ctx, "req-1", func() error {
		r.Complete("req-1", "fast-callback")
		return nil
	})
	if outcome.Kind != OutcomeSuccess || outcome.Result != "fast-callback" {
		t.Fatalf("expected immediate success, got %+v", outcome)
	}
}

func TestAwaitExecution_AtMostOneResultAcrossConcurrentCompletes(t *testing.T) {
	r := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Register before the completions have a chance to run, matching real
	// usage where trigger kicks off the async work that eventually calls Complete.
	var wg sync.WaitGroup
	outcome := r.AwaitExecution(ctx, "req-1", func() error {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				r.Complete("req-1", i) // only the first should land
			}(i)
		}
		wg.Wait()
		return nil
	})
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected exactly one success outcome, got %+v", outcome)
	}
}
