// ABOUTME: Planning engine: context assembly, runtime invocation, outcome classification.
// ABOUTME: Every approval round persists exactly two commands sharing ids and context.

package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hireloop/hireloop-gateway/internal/auth"
	"github.com/hireloop/hireloop-gateway/internal/runtime"
	"github.com/hireloop/hireloop-gateway/internal/store"
	"github.com/hireloop/hireloop-gateway/internal/tool"
)

// NoMessageFound is the short-circuit result for empty input.
const NoMessageFound = "no message found"

// CardTypeApproval tags the payload kind the transport should render
// for a paused round.
const CardTypeApproval = "approvalCard"

// systemPrompt steers the planning loop.
const systemPrompt = `You are an HR operations assistant. You help HR staff manage
candidates, jobs, interviews and offers using the tools available to you.
Prefer looking records up over guessing. When the user asks for an action
with outside effect, call the matching tool; do not describe the action as
done unless a tool confirmed it. Answer concisely in plain language.`

// ContextStore is what the engine reads conversation history from.
type ContextStore interface {
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]*store.Message, error)
}

// CommandLedger persists resumable pending commands.
type CommandLedger interface {
	SaveCommand(ctx context.Context, cmd *store.PendingCommand) error
}

// ToolSource resolves the tool set for a tenant.
type ToolSource interface {
	ResolveForTenant(tenantID string) []tool.Tool
}

// Config holds the engine's loop bounds.
type Config struct {
	MaxSteps      int
	MaxRetries    int
	ContextWindow int
}

// Engine runs planning rounds.
type Engine struct {
	runtime runtime.Runtime
	store   ContextStore
	ledger  CommandLedger
	tools   ToolSource
	cfg     Config
	logger  *slog.Logger
}

// New creates a planning engine.
func New(rt runtime.Runtime, cs ContextStore, ledger CommandLedger, tools ToolSource, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		runtime: rt,
		store:   cs,
		ledger:  ledger,
		tools:   tools,
		cfg:     cfg,
		logger:  logger.With("component", "planner"),
	}
}

// Request is one planning round's input. Resume, when set, is the
// stored context of a resumed approval round and is used verbatim;
// otherwise context is loaded from the store.
type Request struct {
	Credential     *auth.Credential
	ConversationID string
	Text           string
	Attachments    []string
	Emit           func(status string)
	Resume         []runtime.Message
}

// ApprovalCard is the material for rendering an approval prompt.
type ApprovalCard struct {
	ApproveID string   `json:"approveId"`
	RejectID  string   `json:"rejectId"`
	ToolNames []string `json:"toolNames"`
}

// Result is a classified planning outcome: either Output (complete) or
// Approval (paused for human sign-off).
type Result struct {
	NeedsApproval bool
	CardType      string
	Approval      *ApprovalCard
	Output        string
}

// Plan runs one planning round. Credential resolution is the caller's
// responsibility; the engine assumes it already succeeded.
func (e *Engine) Plan(ctx context.Context, req *Request) (*Result, error) {
	if req.Text == "" && req.Resume == nil {
		return &Result{Output: NoMessageFound}, nil
	}

	messages, err := e.assembleContext(ctx, req)
	if err != nil {
		return nil, err
	}

	emit := req.Emit
	if emit == nil {
		emit = func(string) {}
	}

	res, err := e.runtime.Run(ctx, runtime.RunRequest{
		System:     systemPrompt,
		Messages:   messages,
		Tools:      e.tools.ResolveForTenant(req.Credential.TenantID),
		MaxSteps:   e.cfg.MaxSteps,
		MaxRetries: e.cfg.MaxRetries,
		OnStep: func(toolName string) {
			emit(tool.Label(toolName))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("planning round failed: %w", err)
	}

	approvals := res.ApprovalRequests()
	if len(approvals) == 0 {
		return &Result{Output: res.FinalOutput}, nil
	}

	card, err := e.persistRound(ctx, approvals, append(messages, res.ResponseMessages...))
	if err != nil {
		return nil, err
	}
	return &Result{
		NeedsApproval: true,
		CardType:      CardTypeApproval,
		Approval:      card,
	}, nil
}

// assembleContext builds the runtime input: stored context verbatim on
// resume, otherwise the recent conversation window plus the new user turn.
func (e *Engine) assembleContext(ctx context.Context, req *Request) ([]runtime.Message, error) {
	if req.Resume != nil {
		return req.Resume, nil
	}

	recent, err := e.store.RecentMessages(ctx, req.ConversationID, e.cfg.ContextWindow)
	if err != nil {
		return nil, fmt.Errorf("loading conversation context: %w", err)
	}

	messages := make([]runtime.Message, 0, len(recent)+1)
	for _, m := range recent {
		switch m.Role {
		case store.RoleAssistant:
			messages = append(messages, runtime.AssistantMessage(m.Content))
		default:
			messages = append(messages, runtime.UserMessage(m.Content))
		}
	}
	messages = append(messages, runtime.UserMessage(userTurn(req.Text, req.Attachments)))
	return messages, nil
}

// persistRound saves the approve/reject pair for a paused round. Both
// commands share the round id, approval ids and context; they differ
// only in action and id.
func (e *Engine) persistRound(ctx context.Context, approvals []runtime.Part, msgs []runtime.Message) (*ApprovalCard, error) {
	approvalIDs := make([]string, 0, len(approvals))
	toolNames := make([]string, 0, len(approvals))
	for _, p := range approvals {
		approvalIDs = append(approvalIDs, p.ApprovalID)
		toolNames = append(toolNames, tool.HumanName(p.ToolName))
	}

	roundID := uuid.New().String()
	approveID := "cmd_" + uuid.New().String()
	rejectID := "cmd_" + uuid.New().String()

	for _, cmd := range []*store.PendingCommand{
		{ID: approveID, RoundID: roundID, Action: store.ActionApprove, ApprovalIDs: approvalIDs, Context: msgs},
		{ID: rejectID, RoundID: roundID, Action: store.ActionReject, ApprovalIDs: approvalIDs, Context: msgs},
	} {
		if err := e.ledger.SaveCommand(ctx, cmd); err != nil {
			return nil, fmt.Errorf("persisting %s command: %w", cmd.Action, err)
		}
	}

	e.logger.Info("approval round persisted",
		"round_id", roundID,
		"tools", strings.Join(toolNames, ", "))

	return &ApprovalCard{ApproveID: approveID, RejectID: rejectID, ToolNames: toolNames}, nil
}

// userTurn formats the inbound message as the newest user turn,
// including attachment summaries when present.
func userTurn(text string, attachments []string) string {
	var b strings.Builder
	b.WriteString("HR say: ")
	b.WriteString(text)
	if len(attachments) > 0 {
		b.WriteString("\n\nAttached files:")
		for _, a := range attachments {
			b.WriteString("\n- ")
			b.WriteString(a)
		}
	}
	return b.String()
}
