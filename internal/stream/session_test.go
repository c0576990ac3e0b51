// ABOUTME: Tests for the session side of the chunk protocol.
// ABOUTME: Covers terminal exclusivity, close-once semantics, and cancellation.

package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSession_StatusThenFinalText(t *testing.T) {
	sess := NewSession(context.Background(), 4)

	if err := sess.Status("working"); err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if err := sess.FinalText("done"); err != nil {
		t.Fatalf("FinalText failed: %v", err)
	}

	var chunks []Chunk
	for c := range sess.Chunks() {
		chunks = append(chunks, c)
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Kind != KindStatus || chunks[0].Text != "working" {
		t.Errorf("unexpected first chunk: %+v", chunks[0])
	}
	if chunks[1].Kind != KindFinalText || chunks[1].Text != "done" {
		t.Errorf("unexpected terminal chunk: %+v", chunks[1])
	}
}

func TestSession_EmitAfterTerminalFails(t *testing.T) {
	sess := NewSession(context.Background(), 4)

	if err := sess.FinalText("done"); err != nil {
		t.Fatalf("FinalText failed: %v", err)
	}

	if err := sess.Status("late"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if err := sess.FinalData(map[string]string{"type": "message"}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed for second terminal, got %v", err)
	}
}

func TestSession_FinalDataClosesChannel(t *testing.T) {
	sess := NewSession(context.Background(), 4)

	if err := sess.FinalData(map[string]string{"type": "message", "text": "hi"}); err != nil {
		t.Fatalf("FinalData failed: %v", err)
	}

	c, ok := <-sess.Chunks()
	if !ok {
		t.Fatal("expected terminal chunk before close")
	}
	if c.Kind != KindFinalData {
		t.Errorf("expected KindFinalData, got %v", c.Kind)
	}
	if _, ok := <-sess.Chunks(); ok {
		t.Error("channel should be closed after terminal chunk")
	}
}

func TestSession_CloseWithoutTerminal(t *testing.T) {
	sess := NewSession(context.Background(), 4)
	sess.Close()
	sess.Close() // second close is a no-op

	if _, ok := <-sess.Chunks(); ok {
		t.Error("channel should be closed")
	}
	if err := sess.Status("late"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_CancelledConsumerUnblocksProducer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sess := NewSession(ctx, 1)

	// Fill the buffer; nobody is draining.
	if err := sess.Status("one"); err != nil {
		t.Fatalf("Status failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- sess.Status("two")
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("producer stayed blocked after cancellation")
	}
}

func TestSession_UniqueIDs(t *testing.T) {
	a := NewSession(context.Background(), 1)
	b := NewSession(context.Background(), 1)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty session ids, got %q and %q", a.ID, b.ID)
	}
}
