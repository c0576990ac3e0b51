// ABOUTME: Chunk-stream consumer: ordered status rendering, synchronized terminal.
// ABOUTME: Status renders run on a worker so reading never blocks on the transport.

package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/hireloop/hireloop-gateway/internal/stream"
)

// Stream types on transport activities.
const (
	StreamInformative = "informative"
	StreamFinal       = "final"
)

// ErrNoTerminal is returned when the stream ends without a terminal
// chunk, meaning the producer died mid-round.
var ErrNoTerminal = errors.New("stream ended without terminal chunk")

// Activity is one user-visible update pushed to the chat platform.
type Activity struct {
	// StreamID is the provider-assigned id of the session's first
	// activity, empty on that first render.
	StreamID       string
	StreamType     string
	StreamSequence int

	Text    string
	Payload json.RawMessage
}

// Renderer pushes activities to a concrete chat platform.
type Renderer interface {
	// RenderStatus creates or updates the session's in-progress
	// activity and returns the provider-assigned id. The id from the
	// first call is passed back on every later one.
	RenderStatus(ctx context.Context, a Activity) (string, error)
	// RenderFinal renders the terminal message or card.
	RenderFinal(ctx context.Context, a Activity) error
}

// Consumer reads one session's chunk stream and drives a Renderer.
type Consumer struct {
	renderer Renderer
	logger   *slog.Logger
}

// NewConsumer creates a consumer for the given renderer.
func NewConsumer(renderer Renderer, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{renderer: renderer, logger: logger.With("component", "bridge")}
}

// Consume reads newline-delimited chunk lines from r until the terminal
// chunk, rendering along the way. Status renders happen on a worker
// goroutine so a slow chat platform never backs up the stream read; the
// terminal render waits for the worker to finish, which guarantees the
// first activity's provider id is populated before it is referenced.
func (c *Consumer) Consume(ctx context.Context, r io.Reader) error {
	statuses := make(chan string, 64)
	ids := make(chan string, 1)
	done := make(chan struct{})
	go c.renderStatuses(ctx, statuses, ids, done)

	terminal, scanErr := c.readChunks(ctx, r, statuses)
	close(statuses)
	<-done

	if scanErr != nil {
		return scanErr
	}
	if terminal == nil {
		return ErrNoTerminal
	}

	var streamID string
	select {
	case streamID = <-ids:
	default:
		// Terminal-only session: no status activity was ever created.
	}

	final := Activity{StreamID: streamID, StreamType: StreamFinal}
	switch terminal.Kind {
	case stream.KindFinalData:
		final.Payload = terminal.Payload
	case stream.KindFinalText:
		final.Text = terminal.Text
	}
	return c.renderer.RenderFinal(ctx, final)
}

// readChunks scans lines until the terminal chunk, feeding status text
// to the worker. Empty lines are transport keep-alive noise and skipped.
func (c *Consumer) readChunks(ctx context.Context, r io.Reader, statuses chan<- string) (*stream.Chunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		chunk := stream.DecodeLine(line)
		if chunk.Terminal() {
			return &chunk, nil
		}
		select {
		case statuses <- chunk.Text:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

// renderStatuses renders status updates in arrival order, capturing the
// provider id returned by the first successful render.
func (c *Consumer) renderStatuses(ctx context.Context, statuses <-chan string, ids chan<- string, done chan<- struct{}) {
	defer close(done)

	var streamID string
	seq := 0
	for text := range statuses {
		seq++
		id, err := c.renderer.RenderStatus(ctx, Activity{
			StreamID:       streamID,
			StreamType:     StreamInformative,
			StreamSequence: seq,
			Text:           text,
		})
		if err != nil {
			c.logger.Warn("status render failed", "seq", seq, "error", err)
			continue
		}
		if streamID == "" && id != "" {
			streamID = id
			ids <- streamID
		}
	}
}
