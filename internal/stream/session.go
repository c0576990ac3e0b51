// ABOUTME: Session is the producer side of the chunk protocol for one request.
// ABOUTME: Enforces the exactly-one-terminal-chunk contract and close-once semantics.

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionClosed is returned when a chunk is emitted after the terminal
// chunk has been sent or the session has been closed.
var ErrSessionClosed = errors.New("stream session closed")

// Kind identifies the chunk variant.
type Kind int

const (
	// KindStatus is an informational progress update.
	KindStatus Kind = iota
	// KindFinalData is the terminal chunk carrying a JSON payload.
	KindFinalData
	// KindFinalText is the terminal chunk carrying plain text.
	KindFinalText
)

// Chunk is one unit of the multiplexed stream protocol.
type Chunk struct {
	Kind    Kind
	Text    string          // status text or final plain text
	Payload json.RawMessage // final JSON payload
}

// Terminal reports whether the chunk ends the session.
func (c Chunk) Terminal() bool {
	return c.Kind == KindFinalData || c.Kind == KindFinalText
}

// Session owns the ordered chunk sequence for one inbound request.
// It is single-producer, single-consumer: the request task emits chunks
// and the transport writer drains Chunks(). The channel is bounded, and
// every emit observes the session context so a disconnected consumer
// stops the producer instead of letting it run to completion unobserved.
type Session struct {
	ID string

	ctx context.Context
	ch  chan Chunk

	mu     sync.Mutex
	closed bool
}

// NewSession creates a session bound to ctx with the given channel capacity.
func NewSession(ctx context.Context, buffer int) *Session {
	if buffer <= 0 {
		buffer = 16
	}
	return &Session{
		ID:  uuid.New().String(),
		ctx: ctx,
		ch:  make(chan Chunk, buffer),
	}
}

// Chunks returns the consumer end of the session channel. The channel is
// closed after the terminal chunk, or by Close on abandoned sessions.
func (s *Session) Chunks() <-chan Chunk { return s.ch }

// Context returns the session context. Producers check it between
// suspension points to stop work early when the consumer is gone.
func (s *Session) Context() context.Context { return s.ctx }

// Status emits an informational chunk. It fails once the session is closed.
func (s *Session) Status(text string) error {
	return s.send(Chunk{Kind: KindStatus, Text: text})
}

// FinalData emits the terminal JSON chunk and closes the session.
func (s *Session) FinalData(payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.send(Chunk{Kind: KindFinalData, Payload: raw})
}

// FinalText emits the terminal plain-text chunk and closes the session.
func (s *Session) FinalText(text string) error {
	return s.send(Chunk{Kind: KindFinalText, Text: text})
}

// Close closes the session channel if no terminal chunk was emitted.
// Callers defer it so the consumer sees end-of-stream on every exit
// path, including uncaught failures. Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (s *Session) send(c Chunk) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if c.Terminal() {
		// Mark closed before handing the chunk over so a racing emit
		// fails instead of following the terminal chunk.
		s.closed = true
	}
	s.mu.Unlock()

	select {
	case s.ch <- c:
		if c.Terminal() {
			close(s.ch)
		}
		return nil
	case <-s.ctx.Done():
		if c.Terminal() {
			close(s.ch)
		}
		return s.ctx.Err()
	}
}
