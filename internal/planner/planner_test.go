// ABOUTME: Tests for the planning engine.
// ABOUTME: Short-circuits, context assembly, approval persistence, resume fidelity.

package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/hireloop-gateway/internal/auth"
	"github.com/hireloop/hireloop-gateway/internal/builtins"
	"github.com/hireloop/hireloop-gateway/internal/runtime"
	"github.com/hireloop/hireloop-gateway/internal/store"
	"github.com/hireloop/hireloop-gateway/internal/tool"
)

type fakeContextStore struct {
	messages []*store.Message
	calls    int
}

func (f *fakeContextStore) RecentMessages(_ context.Context, _ string, limit int) ([]*store.Message, error) {
	f.calls++
	if len(f.messages) > limit {
		return f.messages[len(f.messages)-limit:], nil
	}
	return f.messages, nil
}

type fakeLedger struct {
	saved []*store.PendingCommand
}

func (f *fakeLedger) SaveCommand(_ context.Context, cmd *store.PendingCommand) error {
	f.saved = append(f.saved, cmd)
	return nil
}

func testRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry()
	require.NoError(t, reg.RegisterAll(builtins.HRPack(builtins.NewMemoryDirectory())))
	return reg
}

func testEngine(t *testing.T, rt runtime.Runtime, cs ContextStore, ledger CommandLedger) *Engine {
	t.Helper()
	cfg := Config{MaxSteps: 5, MaxRetries: 3, ContextWindow: 10}
	return New(rt, cs, ledger, testRegistry(t), cfg, nil)
}

func testCredential() *auth.Credential {
	return &auth.Credential{TenantID: "tenant-1", TenantName: "acme-hr"}
}

func TestPlan_EmptyInputShortCircuits(t *testing.T) {
	rt := runtime.NewFakeRuntime()
	cs := &fakeContextStore{}
	engine := testEngine(t, rt, cs, &fakeLedger{})

	res, err := engine.Plan(context.Background(), &Request{
		Credential:     testCredential(),
		ConversationID: "conv-1",
	})
	require.NoError(t, err)
	assert.Equal(t, NoMessageFound, res.Output)
	assert.False(t, res.NeedsApproval)

	// The short-circuit touches neither store nor runtime, so repeating
	// it changes nothing.
	res2, err := engine.Plan(context.Background(), &Request{
		Credential:     testCredential(),
		ConversationID: "conv-1",
	})
	require.NoError(t, err)
	assert.Equal(t, res, res2)
	assert.Zero(t, cs.calls)
	assert.Empty(t, rt.Calls)
}

func TestPlan_UserTurnPrefixAndWindow(t *testing.T) {
	cs := &fakeContextStore{}
	for i := 0; i < 12; i++ {
		cs.messages = append(cs.messages, &store.Message{
			Role:    store.RoleUser,
			Content: "old message",
			Ord:     int64(i + 1),
		})
	}
	rt := runtime.NewFakeRuntime(runtime.TextResult("done"))
	engine := testEngine(t, rt, cs, &fakeLedger{})

	_, err := engine.Plan(context.Background(), &Request{
		Credential:     testCredential(),
		ConversationID: "conv-1",
		Text:           "list open jobs",
	})
	require.NoError(t, err)

	require.Len(t, rt.Calls, 1)
	msgs := rt.Calls[0].Messages
	// 10-message window + the new turn.
	require.Len(t, msgs, 11)
	last := msgs[len(msgs)-1]
	assert.Equal(t, runtime.RoleUser, last.Role)
	assert.Equal(t, "HR say: list open jobs", last.Content)
	assert.Equal(t, 5, rt.Calls[0].MaxSteps)
	assert.Equal(t, 3, rt.Calls[0].MaxRetries)
}

func TestPlan_AttachmentsAppendedToTurn(t *testing.T) {
	rt := runtime.NewFakeRuntime(runtime.TextResult("done"))
	engine := testEngine(t, rt, &fakeContextStore{}, &fakeLedger{})

	_, err := engine.Plan(context.Background(), &Request{
		Credential:     testCredential(),
		ConversationID: "conv-1",
		Text:           "review this resume",
		Attachments:    []string{"resume-dana.pdf"},
	})
	require.NoError(t, err)

	last := rt.Calls[0].Messages[len(rt.Calls[0].Messages)-1]
	assert.True(t, strings.HasPrefix(last.Content, "HR say: review this resume"))
	assert.Contains(t, last.Content, "resume-dana.pdf")
}

func TestPlan_CompletedRound(t *testing.T) {
	rt := runtime.NewFakeRuntime(runtime.TextResult("There are 3 open jobs."))
	ledger := &fakeLedger{}
	engine := testEngine(t, rt, &fakeContextStore{}, ledger)

	res, err := engine.Plan(context.Background(), &Request{
		Credential:     testCredential(),
		ConversationID: "conv-1",
		Text:           "list open jobs",
	})
	require.NoError(t, err)
	assert.False(t, res.NeedsApproval)
	assert.Equal(t, "There are 3 open jobs.", res.Output)
	assert.Empty(t, ledger.saved, "completed rounds persist no commands")
}

func TestPlan_ApprovalRoundPersistsCommandPair(t *testing.T) {
	rt := runtime.NewFakeRuntime(runtime.ApprovalResult(
		"schedule_interview", "call_abc", `{"candidate_id":"cand-001"}`))
	ledger := &fakeLedger{}
	engine := testEngine(t, rt, &fakeContextStore{}, ledger)

	res, err := engine.Plan(context.Background(), &Request{
		Credential:     testCredential(),
		ConversationID: "conv-1",
		Text:           "schedule an interview with Dana",
	})
	require.NoError(t, err)

	assert.True(t, res.NeedsApproval)
	assert.Equal(t, "approvalCard", res.CardType)
	require.NotNil(t, res.Approval)
	assert.Equal(t, []string{"Schedule Interview"}, res.Approval.ToolNames)
	assert.NotEqual(t, res.Approval.ApproveID, res.Approval.RejectID)
	assert.True(t, strings.HasPrefix(res.Approval.ApproveID, "cmd_"))
	assert.True(t, strings.HasPrefix(res.Approval.RejectID, "cmd_"))

	// Exactly two commands, one per action, sharing round, ids and context.
	require.Len(t, ledger.saved, 2)
	approve, reject := ledger.saved[0], ledger.saved[1]
	assert.Equal(t, store.ActionApprove, approve.Action)
	assert.Equal(t, store.ActionReject, reject.Action)
	assert.Equal(t, approve.RoundID, reject.RoundID)
	assert.Equal(t, approve.ApprovalIDs, reject.ApprovalIDs)
	assert.Equal(t, []string{"call_abc"}, approve.ApprovalIDs)
	assert.Equal(t, approve.Context, reject.Context)

	// The stored context ends with the assistant's pending tool call,
	// after the user turn that caused it.
	last := approve.Context[len(approve.Context)-1]
	require.Len(t, last.ToolCalls, 1)
	assert.Equal(t, "call_abc", last.ToolCalls[0].ID)
	assert.Equal(t, "HR say: schedule an interview with Dana",
		approve.Context[len(approve.Context)-2].Content)
}

func TestPlan_ResumeUsesStoredContextVerbatim(t *testing.T) {
	rt := runtime.NewFakeRuntime(runtime.TextResult("Interview scheduled."))
	cs := &fakeContextStore{messages: []*store.Message{
		{Role: store.RoleUser, Content: "should not be loaded"},
	}}
	engine := testEngine(t, rt, cs, &fakeLedger{})

	stored := []runtime.Message{
		runtime.UserMessage("HR say: schedule an interview with Dana"),
		{Role: runtime.RoleAssistant, ToolCalls: []runtime.ToolCall{
			{ID: "call_abc", Name: "schedule_interview", InputJSON: `{}`},
		}},
		runtime.ApprovalMessage([]string{"call_abc"}, true),
	}

	res, err := engine.Plan(context.Background(), &Request{
		Credential:     testCredential(),
		ConversationID: "conv-1",
		Resume:         stored,
	})
	require.NoError(t, err)
	assert.Equal(t, "Interview scheduled.", res.Output)

	assert.Zero(t, cs.calls, "resume must not reload the context window")
	require.Len(t, rt.Calls, 1)
	assert.Equal(t, stored, rt.Calls[0].Messages)
}

func TestPlan_EmitsToolLabels(t *testing.T) {
	result := &runtime.Result{
		Content: []runtime.Part{
			{Kind: runtime.PartToolCall, ToolName: "search_candidates"},
			{Kind: runtime.PartText, Text: "found"},
		},
		FinalOutput: "found",
	}
	rt := runtime.NewFakeRuntime(result)
	engine := testEngine(t, rt, &fakeContextStore{}, &fakeLedger{})

	var emitted []string
	_, err := engine.Plan(context.Background(), &Request{
		Credential:     testCredential(),
		ConversationID: "conv-1",
		Text:           "find Dana",
		Emit:           func(s string) { emitted = append(emitted, s) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"search candidates"}, emitted)
}

func TestPlan_RuntimeFailurePropagates(t *testing.T) {
	rt := runtime.NewFakeRuntime()
	rt.Fail(errors.New("model unavailable"))
	engine := testEngine(t, rt, &fakeContextStore{}, &fakeLedger{})

	_, err := engine.Plan(context.Background(), &Request{
		Credential:     testCredential(),
		ConversationID: "conv-1",
		Text:           "hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planning round failed")
}
