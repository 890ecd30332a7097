// Package mcp holds the small subset of Model Context Protocol wire types the
// gateway needs to describe tools and render tool-call results. It does not
// attempt to be a full MCP schema implementation; sampling, elicitation,
// resources, and prompts belong to the upstream tool containers, not the
// gateway's CORE mediation path.
package mcp

// JSONSchema is the opaque shape of a ToolDefinition's inputSchema. The
// gateway never validates against it; it is passed through to the agent
// verbatim in tools/list responses.
type JSONSchema map[string]any

// ContentBlock is a single block of a tool-call result, mirroring the MCP
// content union (text/image/audio). The gateway's mediator only ever
// constructs TextContent: an Executor-supplied result's Output is rendered
// into one TextContent (the string itself, or its JSON encoding), so block
// types inside Output are not passed through as separate blocks.
type ContentBlock interface {
	isContentBlock()
}

// TextContent is the block type the gateway uses for its own tool-level
// error messages (TOOL_NOT_FOUND, POLICY_DENIED, etc).
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (TextContent) isContentBlock() {}

// NewTextContent builds a single-block text result, the shape every
// tool-level error in this gateway uses.
func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}
