// ABOUTME: Message, part and result types plus the Runtime interface.
// ABOUTME: Messages round-trip through JSON so stored context resumes faithfully.

package runtime

import (
	"context"

	"github.com/hireloop/hireloop-gateway/internal/tool"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	InputJSON string `json:"input_json"`
}

// ApprovalResponse is a human decision on one approval request, carried
// by a synthetic tool message when a paused round resumes.
type ApprovalResponse struct {
	ApprovalID string `json:"approval_id"`
	Approved   bool   `json:"approved"`
}

// Message is one entry of conversation context as the runtime sees it.
// Tool-role messages carry either a tool result (ToolCallID + Content)
// or approval responses during resumption.
type Message struct {
	Role              Role               `json:"role"`
	Content           string             `json:"content,omitempty"`
	ToolCalls         []ToolCall         `json:"tool_calls,omitempty"`
	ToolCallID        string             `json:"tool_call_id,omitempty"`
	ApprovalResponses []ApprovalResponse `json:"approval_responses,omitempty"`
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ApprovalMessage builds the synthetic tool message injected when a
// paused round resumes, one response per approval id, all carrying the
// same decision.
func ApprovalMessage(approvalIDs []string, approved bool) Message {
	responses := make([]ApprovalResponse, 0, len(approvalIDs))
	for _, id := range approvalIDs {
		responses = append(responses, ApprovalResponse{ApprovalID: id, Approved: approved})
	}
	return Message{Role: RoleTool, ApprovalResponses: responses}
}

// PartKind identifies a result content part.
type PartKind string

const (
	PartText            PartKind = "text"
	PartToolCall        PartKind = "tool-call"
	PartToolResult      PartKind = "tool-result"
	PartApprovalRequest PartKind = "tool-approval-request"
)

// Part is one unit of a run's content, in encounter order.
type Part struct {
	Kind       PartKind `json:"kind"`
	Text       string   `json:"text,omitempty"`
	ToolName   string   `json:"tool_name,omitempty"`
	ApprovalID string   `json:"approval_id,omitempty"`
}

// Result is the outcome of one Run call.
type Result struct {
	// Content holds all parts produced during the run, in order.
	Content []Part
	// FinalOutput is the model's last text output, empty when the run
	// stopped for approval.
	FinalOutput string
	// ResponseMessages are the messages the run appended beyond the
	// input; callers concatenate them onto stored context for resume.
	ResponseMessages []Message
}

// ApprovalRequests extracts the tool-approval-request parts in order.
func (r *Result) ApprovalRequests() []Part {
	var out []Part
	for _, p := range r.Content {
		if p.Kind == PartApprovalRequest {
			out = append(out, p)
		}
	}
	return out
}

// RunRequest carries everything one run needs.
type RunRequest struct {
	System   string
	Messages []Message
	Tools    []tool.Tool
	// MaxSteps bounds the model-turn/tool-execution alternation.
	MaxSteps int
	// MaxRetries bounds transparent retries of a transient model failure.
	MaxRetries int
	// OnStep, when set, is called after every completed step with the
	// most recent tool name, or "" if no tool has run yet.
	OnStep func(toolName string)
}

// Runtime runs a bounded agent loop against a language model.
type Runtime interface {
	Run(ctx context.Context, req RunRequest) (*Result, error)
}
