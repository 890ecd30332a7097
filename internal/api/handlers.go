// Package api wires the gateway's HTTP surface (spec.md §6) onto the
// ambient serviceinfra policy pipeline: the agent-facing JSON-RPC endpoint,
// the Executor-only context-fetch and callback endpoints, and the
// operational GET /mcp/tools mirror. Handlers here are themselves terminal
// si.Policy functions, the same shape every other policy in the chain uses.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	si "github.com/jk-nd/npl-gateway/internal/serviceinfra"

	"github.com/jk-nd/npl-gateway/internal/contextstore"
	"github.com/jk-nd/npl-gateway/internal/jsonrpc"
	"github.com/jk-nd/npl-gateway/internal/mediator"
	"github.com/jk-nd/npl-gateway/internal/router"
	"github.com/jk-nd/npl-gateway/internal/serviceinfra/policies"
)

// Server holds the dependencies the HTTP handlers need.
type Server struct {
	mediator          *mediator.Mediator
	contexts          *contextstore.Store
	executorAuthToken string
}

func NewServer(m *mediator.Mediator, contexts *contextstore.Store, executorAuthToken string) *Server {
	return &Server{mediator: m, contexts: contexts, executorAuthToken: executorAuthToken}
}

// Routes returns the gateway's route table, to be combined with the shared
// ambient policy chain via si.BuildHandler. /context/* and /callback are
// Executor-only (spec.md §6) and get policies.NewBearerAuthPolicy composed
// in front of them as a route-local policy, since the agent-facing /mcp
// endpoint and the operational /healthz and /metrics routes must not
// require the Executor's token.
func (s *Server) Routes() []si.Route {
	executorAuth := policies.NewBearerAuthPolicy(s.executorAuthToken)
	return []si.Route{
		{Method: http.MethodPost, Pattern: "/mcp", Policies: []si.Policy{s.handleRPC}},
		{Method: http.MethodGet, Pattern: "/mcp/tools", Policies: []si.Policy{s.handleListToolsREST}},
		{Method: http.MethodGet, Pattern: "/context/{requestId}", Policies: []si.Policy{executorAuth, s.handleContextFetch}},
		{Method: http.MethodGet, Pattern: "/context", Policies: []si.Policy{executorAuth, s.handleContextMonitoring}},
		{Method: http.MethodPost, Pattern: "/callback", Policies: []si.Policy{executorAuth, s.handleCallback}},
	}
}

// toolCallParams is the params payload of a tools/call request (spec.md §3
// (NEW) ToolCallParams).
type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// userContextFromRequest extracts tenant/user identity. Authentication
// itself (JWT parsing, session lookup) is an external collaborator per
// spec.md §1; this gateway trusts whatever the upstream auth layer placed
// in these headers.
func userContextFromRequest(r *http.Request) mediator.UserContext {
	return mediator.UserContext{
		TenantID: r.Header.Get("X-Tenant-Id"),
		UserID:   r.Header.Get("X-User-Id"),
	}
}

func (s *Server) handleRPC(ctx context.Context, rr *si.ReqRes) error {
	var req jsonrpc.Request
	if err := json.NewDecoder(rr.R.Body).Decode(&req); err != nil {
		return rr.WriteJSON(http.StatusOK, jsonrpc.NewErrorResponse(nil, jsonrpc.CodeParseError, err.Error()))
	}
	if req.JSONRPC != jsonrpc.Version {
		return rr.WriteJSON(http.StatusOK, jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInvalidRequest, "missing or wrong jsonrpc version"))
	}

	switch req.Method {
	case "initialize":
		return rr.WriteJSON(http.StatusOK, jsonrpc.NewResponse(req.ID, map[string]any{
			"protocolVersion": "2025-06-18",
			"serverInfo":      map[string]any{"name": "npl-gateway", "version": "1"},
		}))

	case "tools/list":
		tools := s.mediator.ListEnabledTools(ctx)
		return rr.WriteJSON(http.StatusOK, jsonrpc.NewResponse(req.ID, map[string]any{"tools": wireTools(tools)}))

	case "tools/call":
		var params toolCallParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return rr.WriteJSON(http.StatusOK, jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeInvalidParams, err.Error()))
			}
		}
		result := s.mediator.HandleToolCall(ctx, params.Name, params.Arguments, userContextFromRequest(rr.R))
		return rr.WriteJSON(http.StatusOK, jsonrpc.NewResponse(req.ID, result))

	default:
		return rr.WriteJSON(http.StatusOK, jsonrpc.NewErrorResponse(req.ID, jsonrpc.CodeMethodNotFound, "unknown method \""+req.Method+"\""))
	}
}

// wireToolInfo is the JSON-RPC-visible shape of one enabled, namespaced
// tool (spec.md §4.1's "tools are emitted with names re-namespaced").
type wireToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

func wireTools(tools []router.EnabledTool) []wireToolInfo {
	out := make([]wireToolInfo, 0, len(tools))
	for _, t := range tools {
		out = append(out, wireToolInfo{
			Name:        t.NamespacedName,
			Description: t.Tool.Description,
			InputSchema: t.Tool.InputSchema,
		})
	}
	return out
}

// handleListToolsREST is the GET /mcp/tools convenience mirror (spec.md §6
// (NEW)), not part of the JSON-RPC contract.
func (s *Server) handleListToolsREST(ctx context.Context, rr *si.ReqRes) error {
	tools := s.mediator.ListEnabledTools(ctx)
	return rr.WriteJSON(http.StatusOK, map[string]any{"tools": wireTools(tools)})
}

// handleContextFetch is the Executor's fetch-and-consume endpoint: the
// Executor reads the parked tool-call body exactly once per requestId
// (spec.md §4.2 fetchAndConsume, propagated through §6's GET /context/{id}).
func (s *Server) handleContextFetch(ctx context.Context, rr *si.ReqRes) error {
	requestID := rr.R.PathValue("requestId")
	stored, ok := s.contexts.FetchAndConsume(requestID)
	if !ok {
		return rr.WriteJSON(http.StatusNotFound, map[string]any{"found": false, "error": "unknown or already-consumed requestId"})
	}
	return rr.WriteJSON(http.StatusOK, map[string]any{"found": true, "context": stored})
}

func (s *Server) handleContextMonitoring(ctx context.Context, rr *si.ReqRes) error {
	return rr.WriteJSON(http.StatusOK, map[string]any{
		"stored":   s.contexts.Count(),
		"consumed": s.contexts.ConsumedCount(),
	})
}

func (s *Server) handleCallback(ctx context.Context, rr *si.ReqRes) error {
	var result mediator.ExecuteResult
	if err := rr.UnmarshalBody(&result); err != nil {
		return err
	}
	s.mediator.CompleteCallback(result)
	return rr.WriteJSON(http.StatusOK, map[string]any{"status": "received"})
}
