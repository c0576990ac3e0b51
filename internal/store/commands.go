// ABOUTME: Approval ledger persistence for resumable pending commands.
// ABOUTME: Commands are single-use per round; consumption invalidates the sibling.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hireloop/hireloop-gateway/internal/runtime"
)

// SaveCommand persists one pending command. ApprovalIDs and Context are
// stored as JSON so a resolved command restores the exact resumable state.
func (s *SQLiteStore) SaveCommand(ctx context.Context, cmd *PendingCommand) error {
	if cmd.ID == "" || cmd.RoundID == "" {
		return fmt.Errorf("command id and round id are required")
	}
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = time.Now().UTC()
	}

	ids, err := json.Marshal(cmd.ApprovalIDs)
	if err != nil {
		return fmt.Errorf("encoding approval ids: %w", err)
	}
	msgs, err := json.Marshal(cmd.Context)
	if err != nil {
		return fmt.Errorf("encoding context: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_commands (id, round_id, action, approval_ids, context, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cmd.ID, cmd.RoundID, string(cmd.Action), string(ids), string(msgs), cmd.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting pending command: %w", err)
	}

	s.logger.Debug("pending command saved",
		"command_id", cmd.ID,
		"round_id", cmd.RoundID,
		"action", string(cmd.Action))
	return nil
}

// GetCommand resolves a command by id. Returns ErrNotFound for unknown ids.
func (s *SQLiteStore) GetCommand(ctx context.Context, id string) (*PendingCommand, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, round_id, action, approval_ids, context, created_at, consumed_at
		 FROM pending_commands WHERE id = ?`, id)

	cmd := &PendingCommand{}
	var action, ids, msgs string
	var consumedAt sql.NullTime
	err := row.Scan(&cmd.ID, &cmd.RoundID, &action, &ids, &msgs, &cmd.CreatedAt, &consumedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying pending command: %w", err)
	}

	cmd.Action = Action(action)
	if err := json.Unmarshal([]byte(ids), &cmd.ApprovalIDs); err != nil {
		return nil, fmt.Errorf("decoding approval ids: %w", err)
	}
	if msgs != "" && msgs != "null" {
		if err := json.Unmarshal([]byte(msgs), &cmd.Context); err != nil {
			return nil, fmt.Errorf("decoding context: %w", err)
		}
	}
	if cmd.Context == nil {
		cmd.Context = []runtime.Message{}
	}
	if consumedAt.Valid {
		t := consumedAt.Time
		cmd.ConsumedAt = &t
	}
	return cmd, nil
}

// ConsumeCommand marks the whole round of the given command as decided.
// The second decision on a round fails with ErrCommandConsumed; unknown
// ids fail with ErrNotFound. Rows are kept readable either way.
func (s *SQLiteStore) ConsumeCommand(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_commands
		 SET consumed_at = ?
		 WHERE consumed_at IS NULL
		   AND round_id = (SELECT round_id FROM pending_commands WHERE id = ?)`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("consuming pending command: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consuming pending command: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Nothing updated: either the id is unknown or the round is spent.
	if _, err := s.GetCommand(ctx, id); err != nil {
		return err
	}
	return ErrCommandConsumed
}
