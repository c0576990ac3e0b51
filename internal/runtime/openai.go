// ABOUTME: OpenAI chat-completions implementation of the Runtime interface.
// ABOUTME: Alternates model turns and tool executions, intercepting approval-gated tools.

package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/hireloop/hireloop-gateway/internal/tool"
)

// retryBackoff is the pause between transient model-call retries.
const retryBackoff = 2 * time.Second

// declinedToolResult is fed back to the model when a human rejects an
// approval-gated tool call.
const declinedToolResult = "The user declined to run this tool."

// OpenAIRuntime implements Runtime against an OpenAI-compatible
// chat-completions endpoint.
type OpenAIRuntime struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIRuntime creates a runtime for the given endpoint and model.
// baseURL may be empty to use the default OpenAI endpoint.
func NewOpenAIRuntime(baseURL, apiKey, model string, logger *slog.Logger) *OpenAIRuntime {
	if logger == nil {
		logger = slog.Default()
	}
	var opts []option.RequestOption
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &OpenAIRuntime{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger.With("component", "runtime"),
	}
}

// Run executes the bounded agent loop. Approval-gated tool calls are
// never invoked here: each produces a tool-approval-request part and
// ends the run. Approval responses present in the input messages are
// settled first, feeding approved calls into execution and rejected
// ones into a decline result, before the loop continues.
func (r *OpenAIRuntime) Run(ctx context.Context, req RunRequest) (*Result, error) {
	state := &runState{req: req, toolsByName: indexTools(req.Tools)}

	params := openai.ChatCompletionNewParams{Model: r.model}
	if req.System != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.System))
	}
	params.Tools = toolParams(req.Tools)

	if err := r.replayInput(ctx, state, &params); err != nil {
		return nil, err
	}

	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 1
	}

	for step := 0; step < maxSteps; step++ {
		completion, err := r.complete(ctx, params, req.MaxRetries)
		if err != nil {
			return nil, err
		}

		msg := completion.Choices[0].Message
		params.Messages = append(params.Messages, msg.ToParam())
		state.appendAssistant(msg)

		if len(msg.ToolCalls) == 0 {
			state.finalOutput = msg.Content
			state.step()
			break
		}

		needsApproval := false
		for _, tc := range msg.ToolCalls {
			if tc.Function.Name == "" {
				continue
			}
			t, ok := state.toolsByName[tc.Function.Name]
			if !ok {
				params.Messages = append(params.Messages,
					state.toolResult(tc.ID, fmt.Sprintf("unknown tool: %s", tc.Function.Name)))
				continue
			}
			if t.NeedsApproval() {
				// The call id doubles as the approval id so the
				// resumed round can find the original input.
				state.parts = append(state.parts, Part{
					Kind:       PartApprovalRequest,
					ToolName:   t.Name(),
					ApprovalID: tc.ID,
				})
				needsApproval = true
				continue
			}
			params.Messages = append(params.Messages, state.execute(ctx, t, tc.ID, tc.Function.Arguments))
		}

		state.step()
		if needsApproval {
			break
		}
	}

	return &Result{
		Content:          state.parts,
		FinalOutput:      state.finalOutput,
		ResponseMessages: state.newMessages,
	}, nil
}

// replayInput converts stored context into request messages, settling
// any approval responses it finds along the way.
func (r *OpenAIRuntime) replayInput(ctx context.Context, state *runState, params *openai.ChatCompletionNewParams) error {
	calls := make(map[string]ToolCall)

	for _, m := range state.req.Messages {
		switch m.Role {
		case RoleUser:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		case RoleAssistant:
			am := openai.AssistantMessage(m.Content)
			for _, tc := range m.ToolCalls {
				calls[tc.ID] = tc
				am.OfAssistant.ToolCalls = append(am.OfAssistant.ToolCalls,
					openai.ChatCompletionMessageToolCallUnionParam{
						OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
							ID: tc.ID,
							Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
								Name:      tc.Name,
								Arguments: tc.InputJSON,
							},
						},
					})
			}
			params.Messages = append(params.Messages, am)
		case RoleTool:
			if len(m.ApprovalResponses) == 0 {
				params.Messages = append(params.Messages, openai.ToolMessage(m.Content, m.ToolCallID))
				continue
			}
			for _, resp := range m.ApprovalResponses {
				call, ok := calls[resp.ApprovalID]
				if !ok {
					return fmt.Errorf("approval response for unknown call %s", resp.ApprovalID)
				}
				if !resp.Approved {
					r.logger.Info("tool call rejected", "tool", call.Name, "approval_id", resp.ApprovalID)
					params.Messages = append(params.Messages, state.toolResult(call.ID, declinedToolResult))
					continue
				}
				t, ok := state.toolsByName[call.Name]
				if !ok {
					return fmt.Errorf("approved tool no longer available: %s", call.Name)
				}
				r.logger.Info("tool call approved", "tool", call.Name, "approval_id", resp.ApprovalID)
				params.Messages = append(params.Messages, state.execute(ctx, t, call.ID, call.InputJSON))
				state.step()
			}
		}
	}
	return nil
}

// complete calls the model, retrying transient failures up to maxRetries.
func (r *OpenAIRuntime) complete(ctx context.Context, params openai.ChatCompletionNewParams, maxRetries int) (*openai.ChatCompletion, error) {
	attempts := maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		completion, err := r.client.Chat.Completions.New(ctx, params)
		if err == nil && len(completion.Choices) == 0 {
			err = errors.New("model returned no choices")
		}
		if err == nil {
			return completion, nil
		}
		lastErr = err
		r.logger.Warn("model call failed", "attempt", attempt, "error", err)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
	return nil, fmt.Errorf("model call failed after %d attempts: %w", attempts, lastErr)
}

// runState accumulates parts and response messages across one run.
type runState struct {
	req         RunRequest
	toolsByName map[string]tool.Tool

	parts       []Part
	newMessages []Message
	finalOutput string
	lastTool    string
}

func (s *runState) step() {
	if s.req.OnStep != nil {
		s.req.OnStep(s.lastTool)
	}
}

func (s *runState) appendAssistant(msg openai.ChatCompletionMessage) {
	out := Message{Role: RoleAssistant, Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			InputJSON: tc.Function.Arguments,
		})
	}
	s.newMessages = append(s.newMessages, out)
	if msg.Content != "" {
		s.parts = append(s.parts, Part{Kind: PartText, Text: msg.Content})
	}
}

// execute invokes a tool and records the call/result pair. Invocation
// errors become tool results so the model can recover.
func (s *runState) execute(ctx context.Context, t tool.Tool, callID, inputJSON string) openai.ChatCompletionMessageParamUnion {
	s.parts = append(s.parts, Part{Kind: PartToolCall, ToolName: t.Name()})
	s.lastTool = t.Name()

	output, err := t.Invoke(ctx, json.RawMessage(inputJSON))
	if err != nil {
		output = fmt.Sprintf("Error calling tool %s(): %v", t.Name(), err)
	}
	return s.toolResultNamed(callID, t.Name(), output)
}

func (s *runState) toolResult(callID, output string) openai.ChatCompletionMessageParamUnion {
	return s.toolResultNamed(callID, "", output)
}

func (s *runState) toolResultNamed(callID, toolName, output string) openai.ChatCompletionMessageParamUnion {
	s.parts = append(s.parts, Part{Kind: PartToolResult, ToolName: toolName, Text: output})
	s.newMessages = append(s.newMessages, Message{Role: RoleTool, ToolCallID: callID, Content: output})
	return openai.ToolMessage(output, callID)
}

func indexTools(tools []tool.Tool) map[string]tool.Tool {
	byName := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}
	return byName
}

func toolParams(tools []tool.Tool) []openai.ChatCompletionToolUnionParam {
	var out []openai.ChatCompletionToolUnionParam
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name(),
					Description: openai.String(t.Description()),
					Parameters:  openai.FunctionParameters(t.InputSchema()),
				},
			},
		})
	}
	return out
}
