// Package mediator implements the Request Mediator (C5), the end-to-end
// orchestrator for a single tool call: router → policy check → context
// store → publish → rendezvous → respond. It is the only component that
// talks to all of C1–C4, and is grounded on the teacher's server-handler
// style of sequential, heavily-logged steps with early returns per failure
// mode (mcpsvc's request handlers), generalized here into one state machine
// instead of several REST handlers.
package mediator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jk-nd/npl-gateway/internal/contextstore"
	"github.com/jk-nd/npl-gateway/internal/mcp"
	"github.com/jk-nd/npl-gateway/internal/policyclient"
	"github.com/jk-nd/npl-gateway/internal/publisher"
	"github.com/jk-nd/npl-gateway/internal/rendezvous"
	"github.com/jk-nd/npl-gateway/internal/router"
)

// tracer names the mediator's own child spans around the three suspension
// points named in SPEC_FULL.md §10 (Policy RPC, queue publish, rendezvous
// await); the inbound-request span itself is started by
// policies.NewTracingPolicy and reaches here via ctx.
var tracer = otel.Tracer("github.com/jk-nd/npl-gateway/mediator")

// Tool-level error codes, stable across releases (spec.md §7).
const (
	CodeToolNotFound        = "TOOL_NOT_FOUND"
	CodePolicyDenied        = "POLICY_DENIED"
	CodePolicyUnavailable   = "POLICY_UNAVAILABLE"
	CodeExecutorUnavailable = "EXECUTOR_UNAVAILABLE"
	CodeExecutionTimeout    = "EXECUTION_TIMEOUT"
	CodeExecutionFailed     = "EXECUTION_FAILED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// ToolCallResultEnvelope is the `result` payload of a tools/call JSON-RPC
// response, mirroring the upstream MCP tool-result shape (spec.md §3 (NEW)).
type ToolCallResultEnvelope struct {
	Content []mcp.ContentBlock `json:"content"`
	IsError bool               `json:"isError"`
}

func toolError(code, message string) ToolCallResultEnvelope {
	return ToolCallResultEnvelope{
		Content: []mcp.ContentBlock{mcp.NewTextContent(code + ": " + message)},
		IsError: true,
	}
}

func toolSuccess(output any) ToolCallResultEnvelope {
	return ToolCallResultEnvelope{
		Content: []mcp.ContentBlock{mcp.NewTextContent(stringifyOutput(output))},
		IsError: false,
	}
}

// ExecuteResult is the callback payload posted by the Executor (spec.md §3).
type ExecuteResult struct {
	RequestID string `json:"requestId"`
	Success   bool   `json:"success"`
	Output    any    `json:"output,omitempty"`
	Error     *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// UserContext identifies the caller on whose behalf a tool call is made.
type UserContext struct {
	TenantID string
	UserID   string
}

// Publisher is the subset of publisher.Publisher the mediator needs to
// trigger execution. It is an interface so tests can substitute a fake
// publisher instead of a real AMQP broker (spec.md §8's end-to-end test).
type Publisher interface {
	Publish(ctx context.Context, notification publisher.ExecutionNotification) bool
}

// Mediator wires C1–C4 and the Policy client together.
type Mediator struct {
	router      *router.Router
	contexts    *contextstore.Store
	publisher   Publisher
	rendezvous  *rendezvous.Rendezvous
	policy      *policyclient.Client
	callbackURL string // this gateway's own /callback URL, embedded in the notification
	timeout     time.Duration
	logger      *slog.Logger
}

func New(
	r *router.Router,
	contexts *contextstore.Store,
	pub Publisher,
	rdv *rendezvous.Rendezvous,
	policy *policyclient.Client,
	callbackURL string,
	timeout time.Duration,
	logger *slog.Logger,
) *Mediator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mediator{
		router:      r,
		contexts:    contexts,
		publisher:   pub,
		rendezvous:  rdv,
		policy:      policy,
		callbackURL: callbackURL,
		timeout:     timeout,
		logger:      logger,
	}
}

// HandleToolCall runs the full C1→C2→C3→C4 state machine for one tools/call
// invocation (spec.md §4.5). It always returns a usable result — no path
// leaves the agent hanging past the configured timeout.
func (m *Mediator) HandleToolCall(ctx context.Context, namespacedTool string, arguments map[string]any, user UserContext) ToolCallResultEnvelope {
	resolved, ok := m.router.Resolve(ctx, namespacedTool)
	if !ok {
		return toolError(CodeToolNotFound, "no enabled tool named \""+namespacedTool+"\"")
	}

	requestID := uuid.NewString()

	policyCtx, policySpan := tracer.Start(ctx, "policy.CheckCall", trace.WithAttributes(
		attribute.String("requestId", requestID),
		attribute.String("service", resolved.ServiceName),
		attribute.String("operation", resolved.ToolName),
	))
	check := m.policy.CheckCall(policyCtx, user.TenantID, user.UserID, resolved.ServiceName, resolved.ToolName, map[string]any{"arguments": arguments})
	policySpan.SetAttributes(attribute.Int("policy.decision", int(check.Decision)))
	policySpan.End()
	switch check.Decision {
	case policyclient.DecisionDenied:
		return toolError(CodePolicyDenied, check.Reason)
	case policyclient.DecisionUnavailable:
		return toolError(CodePolicyUnavailable, "policy service unreachable")
	}

	m.contexts.Store(contextstore.StoredContext{
		RequestID: requestID,
		TenantID:  user.TenantID,
		UserID:    user.UserID,
		Service:   resolved.ServiceName,
		Operation: resolved.ToolName,
		Body:      arguments,
		CreatedAt: time.Now(),
	})

	awaitCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	rendezvousCtx, rendezvousSpan := tracer.Start(awaitCtx, "rendezvous.AwaitExecution", trace.WithAttributes(
		attribute.String("requestId", requestID),
	))
	outcome := m.rendezvous.AwaitExecution(rendezvousCtx, requestID, func() error {
		_, publishSpan := tracer.Start(rendezvousCtx, "publisher.Publish", trace.WithAttributes(
			attribute.String("requestId", requestID),
			attribute.String("service", resolved.ServiceName),
		))
		defer publishSpan.End()

		notification := publisher.ExecutionNotification{
			RequestID:   requestID,
			Service:     resolved.ServiceName,
			Operation:   resolved.ToolName,
			CallbackURL: m.callbackURL,
			TenantID:    user.TenantID,
			UserID:      user.UserID,
		}
		if !m.publisher.Publish(ctx, notification) {
			publishSpan.SetStatus(codes.Error, "publish failed")
			return errPublishFailed
		}
		return nil
	})
	rendezvousSpan.SetAttributes(attribute.Int("rendezvous.outcome", int(outcome.Kind)))
	if outcome.Kind != rendezvous.OutcomeSuccess {
		rendezvousSpan.SetStatus(codes.Error, outcome.Message)
	}
	rendezvousSpan.End()

	switch outcome.Kind {
	case rendezvous.OutcomeSuccess:
		result, ok := outcome.Result.(ExecuteResult)
		m.contexts.Remove(requestID)
		if !ok {
			m.logger.Error("rendezvous delivered unexpected result type", slog.String("requestId", requestID))
			return toolError(CodeInternalError, "malformed execution result")
		}
		if result.Success {
			return toolSuccess(result.Output)
		}
		code, message := CodeExecutionFailed, "execution failed"
		if result.Error != nil {
			if result.Error.Code != "" {
				code = result.Error.Code
			}
			message = result.Error.Message
		}
		return toolError(code, message)

	case rendezvous.OutcomeError:
		m.contexts.Remove(requestID)
		return toolError(CodeExecutorUnavailable, outcome.Message)

	default: // OutcomeTimeout, including client-disconnect cancellation
		m.contexts.Remove(requestID)
		return toolError(CodeExecutionTimeout, outcome.Message)
	}
}

// CompleteCallback is invoked by the /callback HTTP handler once the
// Executor posts an ExecuteResult. Delivery to an unknown or already-timed-
// out requestId is a no-op, tolerated per spec.md §4.4.
func (m *Mediator) CompleteCallback(result ExecuteResult) {
	m.rendezvous.Complete(result.RequestID, result)
}

// ListEnabledTools is the read-through backing the tools/list JSON-RPC
// method and the GET /mcp/tools REST mirror.
func (m *Mediator) ListEnabledTools(ctx context.Context) []router.EnabledTool {
	return m.router.ListEnabledTools(ctx)
}

var errPublishFailed = publishError("publish to execution queue failed")

type publishError string

func (e publishError) Error() string { return string(e) }

func stringifyOutput(output any) string {
	if s, ok := output.(string); ok {
		return s
	}
	body, err := json.Marshal(output)
	if err != nil {
		return ""
	}
	return string(body)
}
