package router

import (
	"context"
	"log/slog"
	"strings"
)

// EnabledStateSource answers whether a service is currently enabled, as seen
// by the external Policy service (spec.md §4.1, §9 "Source of truth split").
// It reports ok=false when that service is unreachable; the Router then
// falls back to the config file's enabled flag. Implemented by
// internal/policyclient.Client.
type EnabledStateSource interface {
	// IsServiceEnabled returns the Policy service's view of whether name is
	// enabled, and ok=false if the Policy service could not be reached (the
	// caller must then fall back to the config file's Enabled flag).
	IsServiceEnabled(ctx context.Context, name string) (enabled, ok bool)
}

// ResolvedTool is a namespaced tool successfully resolved to its service.
type ResolvedTool struct {
	ServiceName string
	ToolName    string
	Service     *ServiceDefinition
}

// Router resolves namespaced tool names against a ServicesConfig and an
// EnabledStateSource.
type Router struct {
	services *ServicesConfig
	enabled  EnabledStateSource
}

func New(services *ServicesConfig, enabled EnabledStateSource) *Router {
	return &Router{services: services, enabled: enabled}
}

// ParseName splits "<serviceName>.<toolName>" on the first dot. It rejects
// names with no dot, a dot at position 0, or a dot at the final position
// (spec.md §4.1, invariant 5).
func ParseName(namespacedTool string) (serviceName, toolName string, ok bool) {
	idx := strings.IndexByte(namespacedTool, '.')
	if idx <= 0 || idx == len(namespacedTool)-1 {
		return "", "", false
	}
	return namespacedTool[:idx], namespacedTool[idx+1:], true
}

// isEnabled decides whether svc is enabled using the Policy service first
// and falling back to the YAML config's flag if Policy is unreachable.
// Falling open to YAML is a deliberate availability choice (spec.md §9) and
// is logged here as a warning on the default slog logger.
func (r *Router) isEnabled(ctx context.Context, svc *ServiceDefinition) (enabled bool, viaFallback bool) {
	if policyEnabled, ok := r.enabled.IsServiceEnabled(ctx, svc.Name); ok {
		return policyEnabled, false
	}
	slog.Warn("policy service unreachable, falling back to services config enabled flag",
		slog.String("service", svc.Name), slog.Bool("enabled", svc.Enabled))
	return svc.Enabled, true
}

// Resolve parses and resolves a namespaced tool name. It returns
// (nil, false) if the name is malformed, the service doesn't exist or isn't
// enabled, or the tool doesn't exist or isn't enabled within that service.
func (r *Router) Resolve(ctx context.Context, namespacedTool string) (*ResolvedTool, bool) {
	if !strings.Contains(namespacedTool, ".") {
		// No dot at all: only this case enters the raw-name fallback.
		return r.resolveRawName(ctx, namespacedTool)
	}
	serviceName, toolName, ok := ParseName(namespacedTool)
	if !ok {
		// A dot is present but at position 0 or the final position: malformed,
		// and not eligible for the raw-name fallback.
		return nil, false
	}
	svc := r.services.Service(serviceName)
	if svc == nil {
		return nil, false
	}
	enabled, _ := r.isEnabled(ctx, svc)
	if !enabled {
		return nil, false
	}
	tool := svc.Tool(toolName)
	if tool == nil || !tool.Enabled {
		return nil, false
	}
	return &ResolvedTool{ServiceName: svc.Name, ToolName: tool.Name, Service: svc}, true
}

// resolveRawName implements the raw-name fallback (spec.md §4.1): when the
// input has no dot, scan enabled services in configuration order and return
// the first enabled tool whose name matches.
func (r *Router) resolveRawName(ctx context.Context, toolName string) (*ResolvedTool, bool) {
	for _, svc := range r.services.OrderedServices() {
		enabled, _ := r.isEnabled(ctx, svc)
		if !enabled {
			continue
		}
		if tool := svc.Tool(toolName); tool != nil && tool.Enabled {
			return &ResolvedTool{ServiceName: svc.Name, ToolName: tool.Name, Service: svc}, true
		}
	}
	return nil, false
}

// EnabledTool pairs a tool with the service that owns it, namespaced for
// tools/list responses.
type EnabledTool struct {
	NamespacedName string
	ServiceName    string
	Tool           *ToolDefinition
}

// ListEnabledTools enumerates enabled services and their enabled tools, in
// configuration order, re-namespaced as "<serviceName>.<toolName>"
// (spec.md §4.1, invariant 4). Per spec.md §9's open question, a service
// enabled in YAML but disabled in Policy is excluded — tools/list follows
// Policy, same as Resolve.
func (r *Router) ListEnabledTools(ctx context.Context) []EnabledTool {
	var out []EnabledTool
	for _, svc := range r.services.OrderedServices() {
		enabled, _ := r.isEnabled(ctx, svc)
		if !enabled {
			continue
		}
		for i := range svc.Tools {
			tool := &svc.Tools[i]
			if !tool.Enabled {
				continue
			}
			out = append(out, EnabledTool{
				NamespacedName: svc.Name + "." + tool.Name,
				ServiceName:    svc.Name,
				Tool:           tool,
			})
		}
	}
	return out
}
