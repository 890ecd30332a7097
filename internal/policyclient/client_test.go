package policyclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckCall_Approved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req checkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Service != "testservice" || req.Operation != "do_thing" {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(checkResponse{Approved: true})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	result := c.CheckCall(context.Background(), "tenant-1", "user-1", "testservice", "do_thing", nil)
	if result.Decision != DecisionApproved {
		t.Fatalf("expected approved, got %+v", result)
	}
}

func TestCheckCall_Denied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(checkResponse{Approved: false, Reason: "over quota"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	result := c.CheckCall(context.Background(), "tenant-1", "user-1", "testservice", "do_thing", nil)
	if result.Decision != DecisionDenied || result.Reason != "over quota" {
		t.Fatalf("expected denied with reason, got %+v", result)
	}
}

func TestCheckCall_UnreachableIsUnavailable(t *testing.T) {
	c := New("http://127.0.0.1:1", 50*time.Millisecond) // nothing listens here
	result := c.CheckCall(context.Background(), "tenant-1", "user-1", "testservice", "do_thing", nil)
	if result.Decision != DecisionUnavailable {
		t.Fatalf("expected unavailable, got %+v", result)
	}
}

func TestCheckCall_NonOKStatusIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	result := c.CheckCall(context.Background(), "tenant-1", "user-1", "testservice", "do_thing", nil)
	if result.Decision != DecisionUnavailable {
		t.Fatalf("expected unavailable, got %+v", result)
	}
}

func TestIsServiceEnabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/policy/services/testservice/enabled" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(enabledResponse{Enabled: true})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	enabled, ok := c.IsServiceEnabled(context.Background(), "testservice")
	if !ok || !enabled {
		t.Fatalf("expected enabled=true, ok=true, got enabled=%v ok=%v", enabled, ok)
	}
}

func TestIsServiceEnabled_UnreachableReturnsNotOK(t *testing.T) {
	c := New("http://127.0.0.1:1", 50*time.Millisecond)
	_, ok := c.IsServiceEnabled(context.Background(), "testservice")
	if ok {
		t.Fatal("expected ok=false when Policy service is unreachable")
	}
}

func TestGetEnabledServices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(struct {
			Services []string `json:"services"`
		}{Services: []string{"testservice", "otherservice"}})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	names, ok := c.GetEnabledServices(context.Background())
	if !ok || len(names) != 2 {
		t.Fatalf("expected 2 enabled services, got %v (ok=%v)", names, ok)
	}
}
