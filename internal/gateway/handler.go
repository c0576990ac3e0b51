// ABOUTME: Core message/command operations behind the HTTP API.
// ABOUTME: Credential checks fail closed; approval rounds are single-use.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hireloop/hireloop-gateway/internal/auth"
	"github.com/hireloop/hireloop-gateway/internal/format"
	"github.com/hireloop/hireloop-gateway/internal/planner"
	"github.com/hireloop/hireloop-gateway/internal/runtime"
	"github.com/hireloop/hireloop-gateway/internal/store"
	"github.com/hireloop/hireloop-gateway/internal/stream"
)

// Status texts sent while a request is being worked.
const (
	statusReading    = "AI is Reading Your Message..."
	statusFormatting = "Formatting Your Message..."
)

// User-facing terminal texts for requests that never reach planning.
const (
	noCredentialText = "This workspace has no tenant credential yet. Ask an administrator to connect your organization before using the assistant."
	roundDecidedText = "This approval was already decided."
	duplicateText    = "Duplicate message ignored."
)

// CredentialResolver resolves bearer tokens to tenant credentials.
type CredentialResolver interface {
	Resolve(ctx context.Context, token string) (*auth.Credential, error)
}

// Planner runs one planning round.
type Planner interface {
	Plan(ctx context.Context, req *planner.Request) (*planner.Result, error)
}

// ContextAppender appends messages to conversation context.
type ContextAppender interface {
	AppendMessage(ctx context.Context, msg *store.Message) error
}

// CommandLedger resolves and consumes pending commands.
type CommandLedger interface {
	GetCommand(ctx context.Context, id string) (*store.PendingCommand, error)
	ConsumeCommand(ctx context.Context, id string) error
}

// Handler implements the gateway's two logical operations.
type Handler struct {
	resolver  CredentialResolver
	planner   Planner
	contexts  ContextAppender
	ledger    CommandLedger
	formatter format.Formatter
	cards     format.CardFactory

	// flushDelay is the pause before an approval-card terminal chunk,
	// giving the transport time to drain the prior status chunks.
	flushDelay time.Duration

	logger *slog.Logger
}

// NewHandler creates a handler.
func NewHandler(
	resolver CredentialResolver,
	p Planner,
	contexts ContextAppender,
	ledger CommandLedger,
	formatter format.Formatter,
	cards format.CardFactory,
	flushDelay time.Duration,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		resolver:   resolver,
		planner:    p,
		contexts:   contexts,
		ledger:     ledger,
		formatter:  formatter,
		cards:      cards,
		flushDelay: flushDelay,
		logger:     logger.With("component", "gateway"),
	}
}

// MessageInput is one inbound free-text message.
type MessageInput struct {
	ConversationID string
	Text           string
	Attachments    []string
	UserID         string
	Token          string
}

// CommandInput is one resumed command.
type CommandInput struct {
	ConversationID string
	CommandID      string
	Payload        json.RawMessage
	Token          string
}

// HandleMessage runs a planning round for a free-text message. The
// session is closed on every exit path; sess.Close after a terminal
// chunk is a no-op.
func (h *Handler) HandleMessage(ctx context.Context, sess *stream.Session, in *MessageInput) {
	defer sess.Close()

	cred := h.resolveCredential(ctx, sess, in.Token)
	if cred == nil {
		return
	}

	if err := h.contexts.AppendMessage(ctx, &store.Message{
		ConversationID: in.ConversationID,
		Role:           store.RoleUser,
		Content:        in.Text,
	}); err != nil {
		h.logger.Error("failed to append inbound message",
			"conversation_id", in.ConversationID, "error", err)
		return
	}

	h.emitStatus(sess, statusReading)

	res, err := h.planner.Plan(ctx, &planner.Request{
		Credential:     cred,
		ConversationID: in.ConversationID,
		Text:           in.Text,
		Attachments:    in.Attachments,
		Emit:           func(s string) { h.emitStatus(sess, s) },
	})
	if err != nil {
		// Planning failures have no user-facing taxonomy; the closed
		// session tells the consumer the round died.
		h.logger.Error("planning round failed",
			"conversation_id", in.ConversationID, "error", err)
		return
	}

	h.finish(ctx, sess, in.ConversationID, in.Text, res)
}

// HandleCommand resumes a pending command. Unknown actions are a silent
// no-op; a consumed round yields a terminal text instead of re-running.
func (h *Handler) HandleCommand(ctx context.Context, sess *stream.Session, in *CommandInput) {
	defer sess.Close()

	cred := h.resolveCredential(ctx, sess, in.Token)
	if cred == nil {
		return
	}

	cmd, err := h.ledger.GetCommand(ctx, in.CommandID)
	if err != nil {
		h.logger.Error("failed to resolve command",
			"command_id", in.CommandID, "error", err)
		return
	}

	action, known := store.ParseAction(string(cmd.Action))
	if !known {
		h.logger.Warn("unknown command action ignored",
			"command_id", cmd.ID, "action", string(cmd.Action))
		return
	}

	switch action {
	case store.ActionApprove, store.ActionReject:
		h.resumeApprovalRound(ctx, sess, cred, in.ConversationID, cmd, action == store.ActionApprove)
	case store.ActionMarkJobClosed:
		// External collaborator action; nothing to orchestrate here.
		h.logger.Info("mark-job-as-closed command acknowledged", "command_id", cmd.ID)
	}
}

// resolveCredential resolves the tenant credential, emitting the fixed
// fail-closed terminal text when absent. Returns nil when the caller
// must stop: no credential means no context reads, no planning, no
// tool access.
func (h *Handler) resolveCredential(ctx context.Context, sess *stream.Session, token string) *auth.Credential {
	cred, err := h.resolver.Resolve(ctx, token)
	if err != nil {
		if !errors.Is(err, auth.ErrNoCredential) {
			h.logger.Error("credential resolution failed", "error", err)
		}
		if err := sess.FinalText(noCredentialText); err != nil {
			h.logger.Debug("failed to emit no-credential text", "error", err)
		}
		return nil
	}
	return cred
}

// resumeApprovalRound injects the human decision into the stored
// context and re-runs the planning engine. Consuming the command
// invalidates its sibling, so a round resolves at most once.
func (h *Handler) resumeApprovalRound(
	ctx context.Context,
	sess *stream.Session,
	cred *auth.Credential,
	conversationID string,
	cmd *store.PendingCommand,
	approved bool,
) {
	if err := h.ledger.ConsumeCommand(ctx, cmd.ID); err != nil {
		if errors.Is(err, store.ErrCommandConsumed) {
			if err := sess.FinalText(roundDecidedText); err != nil {
				h.logger.Debug("failed to emit round-decided text", "error", err)
			}
			return
		}
		h.logger.Error("failed to consume command", "command_id", cmd.ID, "error", err)
		return
	}

	h.logger.Info("approval round resumed",
		"command_id", cmd.ID,
		"round_id", cmd.RoundID,
		"approved", approved)

	resume := append(append([]runtime.Message{}, cmd.Context...),
		runtime.ApprovalMessage(cmd.ApprovalIDs, approved))

	h.emitStatus(sess, statusReading)

	res, err := h.planner.Plan(ctx, &planner.Request{
		Credential:     cred,
		ConversationID: conversationID,
		Emit:           func(s string) { h.emitStatus(sess, s) },
		Resume:         resume,
	})
	if err != nil {
		h.logger.Error("resumed planning round failed",
			"command_id", cmd.ID, "error", err)
		return
	}

	h.finish(ctx, sess, conversationID, lastUserText(cmd.Context), res)
}

// finish emits the terminal chunk for a classified planning result:
// an approval card after the flush delay, or the formatted payload.
func (h *Handler) finish(ctx context.Context, sess *stream.Session, conversationID, originalText string, res *planner.Result) {
	if res.NeedsApproval {
		payload, err := h.cards.ApprovalCard(res.Approval.ToolNames, res.Approval.ApproveID, res.Approval.RejectID)
		if err != nil {
			h.logger.Error("failed to build approval card", "error", err)
			return
		}
		select {
		case <-time.After(h.flushDelay):
		case <-ctx.Done():
			return
		}
		if err := sess.FinalData(payload); err != nil {
			h.logger.Debug("failed to emit approval card", "error", err)
		}
		return
	}

	h.emitStatus(sess, statusFormatting)

	if err := h.contexts.AppendMessage(ctx, &store.Message{
		ConversationID: conversationID,
		Role:           store.RoleAssistant,
		Content:        res.Output,
	}); err != nil {
		h.logger.Error("failed to append planner output",
			"conversation_id", conversationID, "error", err)
		return
	}

	payload, err := h.formatter.Format(ctx, res.Output, originalText)
	if err != nil {
		h.logger.Error("formatting failed", "conversation_id", conversationID, "error", err)
		return
	}
	if err := sess.FinalData(payload); err != nil {
		h.logger.Debug("failed to emit formatted payload", "error", err)
	}
}

func (h *Handler) emitStatus(sess *stream.Session, text string) {
	if text == "" {
		return
	}
	if err := sess.Status(text); err != nil {
		h.logger.Debug("status chunk dropped", "error", err)
	}
}

// lastUserText finds the newest user turn in stored context, for the
// formatter's original-request input on resumed rounds.
func lastUserText(msgs []runtime.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == runtime.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
