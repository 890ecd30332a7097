package policies

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	si "github.com/jk-nd/npl-gateway/internal/serviceinfra"
)

// ShutdownConfig configures a ShutdownMgr.
type ShutdownConfig struct {
	Logger *slog.Logger
	// HealthProbeDelay is how long to keep accepting new requests after a
	// shutdown signal, giving a load balancer time to stop routing traffic.
	HealthProbeDelay time.Duration
	// DrainTimeout bounds how long shutdown waits for in-flight mediator
	// tasks (tool calls awaiting a callback) to finish before the process
	// exits anyway.
	DrainTimeout time.Duration
}

// ShutdownMgr tracks in-flight requests and coordinates graceful shutdown on
// SIGINT/SIGTERM, mirroring the teacher's ShutdownMgr.
type ShutdownMgr struct {
	cfg           ShutdownConfig
	shuttingDown  atomic.Bool
	inflight      sync.WaitGroup
	Ctx           context.Context // canceled once shutdown begins
	cancel        context.CancelCauseFunc
	CtxDrained    context.Context // canceled once in-flight requests finish (or DrainTimeout elapses)
	cancelDrained context.CancelCauseFunc
}

// NewShutdownMgr installs a signal handler and returns a ShutdownMgr ready
// to be wired into the policy chain and the background sweepers.
func NewShutdownMgr(cfg ShutdownConfig) *ShutdownMgr {
	sm := &ShutdownMgr{cfg: cfg}
	sm.Ctx, sm.cancel = context.WithCancelCause(context.Background())
	sm.CtxDrained, sm.cancelDrained = context.WithCancelCause(context.Background())

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigs

		sm.shuttingDown.Store(true)
		sm.cancel(errors.New("shutdown requested: " + sig.String()))
		cfg.Logger.Info("shutdown requested, draining in-flight requests", slog.String("signal", sig.String()))

		time.Sleep(cfg.HealthProbeDelay) // give the load balancer time to stop sending traffic

		drained := make(chan struct{})
		go func() {
			sm.inflight.Wait()
			close(drained)
		}()
		select {
		case <-drained:
			cfg.Logger.Info("all in-flight requests drained")
		case <-time.After(cfg.DrainTimeout):
			cfg.Logger.Warn("drain timeout elapsed with requests still in flight")
		}
		sm.cancelDrained(errors.New("drain complete"))
	}()
	return sm
}

// ShuttingDown reports whether a shutdown signal has been received.
func (sm *ShutdownMgr) ShuttingDown() bool { return sm.shuttingDown.Load() }

// HealthProbe answers a liveness/readiness GET, returning 503 once shutdown
// has begun so the load balancer stops routing new traffic here.
func (sm *ShutdownMgr) HealthProbe(ctx context.Context, r *si.ReqRes) error {
	if sm.ShuttingDown() {
		return r.Error(http.StatusServiceUnavailable, "ShuttingDown", "this instance is shutting down")
	}
	return r.WriteJSON(http.StatusOK, map[string]string{"status": "ok"})
}

// NewGracefulShutdownPolicy rejects new requests with 503 once shutdown has
// begun, and otherwise tracks the request against the drain WaitGroup.
func NewGracefulShutdownPolicy(sm *ShutdownMgr) si.Policy {
	return func(ctx context.Context, r *si.ReqRes) error {
		if sm.ShuttingDown() {
			return r.Error(http.StatusServiceUnavailable, "ShuttingDown", "this instance is shutting down; please retry")
		}
		sm.inflight.Add(1)
		defer sm.inflight.Done()
		return r.Next(ctx)
	}
}
