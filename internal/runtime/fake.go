// ABOUTME: Scripted in-memory Runtime for tests.
// ABOUTME: Returns queued results in order and records every request.

package runtime

import (
	"context"
	"errors"
	"sync"
)

// FakeRuntime is a Runtime whose results are scripted ahead of time.
// Each Run pops the next queued result; running past the script returns
// an error. All requests are recorded for assertions.
type FakeRuntime struct {
	mu      sync.Mutex
	results []*Result
	err     error

	Calls []RunRequest
}

// NewFakeRuntime queues the given results.
func NewFakeRuntime(results ...*Result) *FakeRuntime {
	return &FakeRuntime{results: results}
}

// Fail makes every subsequent Run return err.
func (f *FakeRuntime) Fail(err error) { f.err = err }

// Run pops the next scripted result, invoking OnStep once per content
// part that represents a completed tool call.
func (f *FakeRuntime) Run(_ context.Context, req RunRequest) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, errors.New("fake runtime: script exhausted")
	}
	res := f.results[0]
	f.results = f.results[1:]

	if req.OnStep != nil {
		for _, p := range res.Content {
			if p.Kind == PartToolCall {
				req.OnStep(p.ToolName)
			}
		}
	}
	return res, nil
}

// TextResult scripts a completed run with the given final output.
func TextResult(text string) *Result {
	return &Result{
		Content:     []Part{{Kind: PartText, Text: text}},
		FinalOutput: text,
		ResponseMessages: []Message{
			{Role: RoleAssistant, Content: text},
		},
	}
}

// ApprovalResult scripts a run that pauses for approval of one tool
// call with the given input.
func ApprovalResult(toolName, approvalID, inputJSON string) *Result {
	return &Result{
		Content: []Part{
			{Kind: PartApprovalRequest, ToolName: toolName, ApprovalID: approvalID},
		},
		ResponseMessages: []Message{
			{
				Role: RoleAssistant,
				ToolCalls: []ToolCall{
					{ID: approvalID, Name: toolName, InputJSON: inputJSON},
				},
			},
		},
	}
}
