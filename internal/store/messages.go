// ABOUTME: Conversation context persistence: ordered append and recent-window reads.
// ABOUTME: Appends are serialized per conversation to keep insertion order stable.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendMessage appends a message to its conversation. The store
// assigns ID, Ord and CreatedAt when unset.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.ConversationID == "" {
		return fmt.Errorf("conversation_id is required")
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	lock := s.conversationLock(msg.ConversationID)
	lock.Lock()
	defer lock.Unlock()

	var next sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(ord) FROM messages WHERE conversation_id = ?`,
		msg.ConversationID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("resolving message order: %w", err)
	}
	msg.Ord = next.Int64 + 1

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, ord, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.Ord, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("message appended",
		"conversation_id", msg.ConversationID,
		"role", msg.Role,
		"ord", msg.Ord)
	return nil
}

// RecentMessages returns the last limit messages of a conversation in
// insertion order. A conversation with no messages yields an empty slice.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, ord, created_at
		 FROM messages
		 WHERE conversation_id = ?
		 ORDER BY ord DESC
		 LIMIT ?`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg := &Message{}
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Ord, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse: the query walks newest-first, callers want insertion order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
