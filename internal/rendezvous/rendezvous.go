// Package rendezvous implements the Callback Rendezvous (C4): the
// sync-over-async mechanism that reunites an async Executor callback with
// the HTTP handler blocked waiting for it. The shape follows spec.md §9's
// language-neutral mapping: a concurrent map keyed by requestId, each value
// a one-slot channel signalled once, with register-before-trigger ordering
// enforced by making AwaitExecution the only public entry point.
package rendezvous

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pendingGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "gateway_rendezvous_pending",
	Help: "Number of tool calls currently awaiting an Executor callback.",
})

// Outcome is the terminal result of an AwaitExecution call.
type Outcome struct {
	Kind    OutcomeKind
	Result  any   // set iff Kind == Success
	CtxErr  error // set iff Kind == Timeout; distinguishes context.DeadlineExceeded (a real timeout) from context.Canceled (client disconnect)
	Message string
}

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeTimeout
	OutcomeError
)

type slot struct {
	ch chan any
}

// Rendezvous is the process-wide singleton holding one PendingRequest per
// in-flight requestId.
type Rendezvous struct {
	mu      sync.Mutex
	pending map[string]*slot
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Rendezvous {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rendezvous{pending: map[string]*slot{}, logger: logger}
}

// register creates the slot for id. Precondition: no entry exists for id.
func (r *Rendezvous) register(id string) *slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[id]; exists {
		panic("rendezvous: register called twice for requestId " + id)
	}
	s := &slot{ch: make(chan any, 1)}
	r.pending[id] = s
	pendingGauge.Inc()
	return s
}

func (r *Rendezvous) removeLocked(id string) {
	if _, exists := r.pending[id]; exists {
		delete(r.pending, id)
		pendingGauge.Dec()
	}
}

// Complete delivers result to id's slot if one exists, and removes the
// mapping. If no slot exists (a late callback after timeout), Complete is a
// no-op aside from logging — this tolerates the race described in spec.md
// §4.4 where the waiter has already timed out.
func (r *Rendezvous) Complete(id string, result any) {
	r.mu.Lock()
	s, exists := r.pending[id]
	if exists {
		r.removeLocked(id)
	}
	r.mu.Unlock()

	if !exists {
		r.logger.Warn("late callback for unknown or already-completed requestId, dropping", slog.String("requestId", id))
		return
	}
	s.ch <- result // buffered, never blocks
}

// AwaitExecution registers a slot for id, invokes trigger (expected to kick
// off the async work, e.g. publish to the execution queue), and then blocks
// until either the slot is filled, ctx is canceled, or timeout elapses.
// Register happens-before trigger, so a callback racing a slow trigger can
// never lose the result (spec.md §4.4 "Ordering").
func (r *Rendezvous) AwaitExecution(ctx context.Context, id string, trigger func() error) Outcome {
	s := r.register(id)

	if err := trigger(); err != nil {
		r.mu.Lock()
		r.removeLocked(id)
		r.mu.Unlock()
		return Outcome{Kind: OutcomeError, Message: fmt.Sprintf("trigger failed: %v", err)}
	}

	select {
	case result := <-s.ch:
		return Outcome{Kind: OutcomeSuccess, Result: result}
	case <-ctx.Done():
		r.mu.Lock()
		_, stillPending := r.pending[id]
		r.removeLocked(id)
		r.mu.Unlock()
		if !stillPending {
			// Complete() won the race right as ctx was canceled; prefer its result.
			select {
			case result := <-s.ch:
				return Outcome{Kind: OutcomeSuccess, Result: result}
			default:
			}
		}
		return Outcome{Kind: OutcomeTimeout, CtxErr: ctx.Err(), Message: ctx.Err().Error()}
	}
}

// Pending reports how many requestIds currently hold a slot, for monitoring.
func (r *Rendezvous) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
