package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestResponse_MarshalsIDVerbatim(t *testing.T) {
	id := json.RawMessage(`42`)
	resp := NewResponse(id, map[string]any{"ok": true})

	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(decoded["id"]) != "42" {
		t.Errorf("expected id=42, got %s", decoded["id"])
	}
	if string(decoded["jsonrpc"]) != `"2.0"` {
		t.Errorf("expected jsonrpc=2.0, got %s", decoded["jsonrpc"])
	}
}

func TestErrorResponse_CarriesReservedCode(t *testing.T) {
	id := json.RawMessage(`"req-1"`)
	resp := NewErrorResponse(id, CodeMethodNotFound, "unknown method")

	if resp.Error.Code != -32601 {
		t.Errorf("expected -32601, got %d", resp.Error.Code)
	}
	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, hasResult := decoded["result"]; hasResult {
		t.Error("error response must not carry a result field")
	}
}
