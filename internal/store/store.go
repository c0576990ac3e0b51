// ABOUTME: Store interface, entity types and sentinel errors.
// ABOUTME: Action is a closed enumeration dispatched exhaustively at resume time.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/hireloop/hireloop-gateway/internal/runtime"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrCommandConsumed is returned when a pending command's approval round
// has already been decided.
var ErrCommandConsumed = errors.New("command already consumed")

// ErrDuplicateTenant is returned when a tenant name is already taken.
var ErrDuplicateTenant = errors.New("tenant already exists")

// Message role constants for persisted conversation context.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one persisted entry of a conversation. Ord is the
// insertion order within the conversation, assigned by the store.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	Ord            int64
	CreatedAt      time.Time
}

// Action is a resumable command's variant. New variants are added here
// and dispatched exhaustively where commands resume.
type Action string

const (
	ActionApprove       Action = "approve_action"
	ActionReject        Action = "reject_action"
	ActionMarkJobClosed Action = "mark_job_as_closed"
)

// ParseAction maps a stored string to a known Action.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionApprove, ActionReject, ActionMarkJobClosed:
		return Action(s), true
	}
	return "", false
}

// PendingCommand is a persisted, resumable decision point. Every
// approval round persists exactly two commands sharing RoundID,
// ApprovalIDs and Context, one per decision.
type PendingCommand struct {
	ID          string
	RoundID     string
	Action      Action
	ApprovalIDs []string
	Context     []runtime.Message
	CreatedAt   time.Time
	ConsumedAt  *time.Time
}

// Tenant is an organization credentialed to use the assistant's tools.
type Tenant struct {
	ID         string
	Name       string
	SecretHash string
	CreatedAt  time.Time
}

// Store is the persistence interface for the gateway.
type Store interface {
	// Context store: append-only ordered conversation messages.
	AppendMessage(ctx context.Context, msg *Message) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error)

	// Approval ledger: pending commands remain readable after
	// consumption; ConsumeCommand marks the whole round decided.
	SaveCommand(ctx context.Context, cmd *PendingCommand) error
	GetCommand(ctx context.Context, id string) (*PendingCommand, error)
	ConsumeCommand(ctx context.Context, id string) error

	// Tenant registry.
	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)

	Close() error
}
