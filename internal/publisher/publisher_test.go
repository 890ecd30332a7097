package publisher

import (
	"encoding/json"
	"testing"
)

// ExecutionNotification has no behavior of its own beyond JSON shape; lock in
// the wire field names since the Executor depends on them verbatim.
func TestExecutionNotification_JSONFieldNames(t *testing.T) {
	n := ExecutionNotification{
		RequestID:   "req-1",
		Service:     "testservice",
		Operation:   "do_thing",
		CallbackURL: "http://localhost:8080/callback",
		TenantID:    "tenant-1",
		UserID:      "user-1",
	}
	body, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, field := range []string{"requestId", "service", "operation", "callbackUrl", "tenantId", "userId"} {
		if _, ok := m[field]; !ok {
			t.Errorf("expected field %q in marshaled notification, got %v", field, m)
		}
	}
}

// Publish against a Publisher that never managed to dial (no broker
// reachable in this test environment) must return false, never panic.
func TestPublish_NoChannelReturnsFalse(t *testing.T) {
	p := &Publisher{queueName: "npl.execution.requests", logger: nil}
	p.logger = discardLogger()

	ok := p.Publish(testContext(t), ExecutionNotification{RequestID: "req-1"})
	if ok {
		t.Fatal("expected Publish to return false with no open channel")
	}
}

// Close on a Publisher that never successfully connected must not panic.
func TestClose_NeverConnected(t *testing.T) {
	p := &Publisher{queueName: "npl.execution.requests", logger: discardLogger(), done: make(chan struct{})}
	p.Close()
}
