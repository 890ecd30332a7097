package policies

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	si "github.com/jk-nd/npl-gateway/internal/serviceinfra"
)

func TestRateCounter_AccumulatesWithinWindow(t *testing.T) {
	rc := newRateCounter(time.Hour) // window long enough not to roll over mid-test
	rc.Add(1)
	rc.Add(2)
	if got := rc.Rate(); got != 3 {
		t.Fatalf("expected rate 3, got %d", got)
	}
}

func TestRateCounter_ResetsAfterWindowElapses(t *testing.T) {
	rc := newRateCounter(10 * time.Millisecond)
	rc.Add(5)
	time.Sleep(20 * time.Millisecond)
	if got := rc.Rate(); got != 0 {
		t.Fatalf("expected rate reset to 0 after window elapsed, got %d", got)
	}
}

func TestThrottlingPolicy_RejectsOverLimit(t *testing.T) {
	throttle := NewThrottlingPolicy(2)
	terminalCalls := 0
	terminal := func(ctx context.Context, r *si.ReqRes) error {
		terminalCalls++
		return r.WriteJSON(http.StatusOK, map[string]string{"ok": "yes"})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	run := func() error {
		rr := si.NewReqRes([]si.Policy{throttle, terminal}, req, httptest.NewRecorder())
		return rr.Next(context.Background())
	}

	if err := run(); err != nil {
		t.Fatalf("request 1: unexpected error: %v", err)
	}
	if err := run(); err != nil {
		t.Fatalf("request 2: unexpected error: %v", err)
	}
	if err := run(); err == nil {
		t.Fatal("request 3: expected throttling error, got nil")
	}
	if terminalCalls != 2 {
		t.Fatalf("expected terminal policy to run exactly twice, ran %d times", terminalCalls)
	}
}
