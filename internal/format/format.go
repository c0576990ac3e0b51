// ABOUTME: Formatter implementations: model-backed polish and a plain passthrough.
// ABOUTME: Both emit the same Payload shape with text, HTML and optional card.

package format

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"

	"github.com/hireloop/hireloop-gateway/internal/runtime"
)

// Payload type tags understood by the transport renderers.
const (
	PayloadMessage      = "message"
	PayloadApprovalCard = "approvalCard"
)

// Payload is the renderable terminal payload of a session.
type Payload struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	HTML string `json:"html,omitempty"`
	Card *Card  `json:"card,omitempty"`
}

// Card is an approval prompt: which tools want to run and the two
// resumable command tokens the user can answer with.
type Card struct {
	Title        string   `json:"title"`
	ToolNames    []string `json:"toolNames"`
	ApproveToken string   `json:"approveToken"`
	RejectToken  string   `json:"rejectToken"`
}

// Formatter converts raw planner output into a renderable payload.
type Formatter interface {
	Format(ctx context.Context, raw, originalRequest string) (json.RawMessage, error)
}

// CardFactory builds approval-card payloads.
type CardFactory interface {
	ApprovalCard(toolNames []string, approveToken, rejectToken string) (json.RawMessage, error)
}

const formatterPrompt = `You format an HR assistant's raw output into the reply the
user will actually read. Keep every fact, drop internal phrasing, answer the
original request directly. Use Markdown. Output only the reply.`

// Config bounds the formatter's runtime usage.
type Config struct {
	MaxSteps   int
	MaxRetries int
}

// ModelFormatter polishes raw output with one bounded model call, then
// renders the markdown to HTML. A failed model call falls back to the
// raw output rather than failing the session.
type ModelFormatter struct {
	runtime runtime.Runtime
	cfg     Config
	logger  *slog.Logger
}

// NewModelFormatter creates a model-backed formatter.
func NewModelFormatter(rt runtime.Runtime, cfg Config, logger *slog.Logger) *ModelFormatter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelFormatter{runtime: rt, cfg: cfg, logger: logger.With("component", "formatter")}
}

func (f *ModelFormatter) Format(ctx context.Context, raw, originalRequest string) (json.RawMessage, error) {
	text := raw
	res, err := f.runtime.Run(ctx, runtime.RunRequest{
		System: formatterPrompt,
		Messages: []runtime.Message{
			runtime.UserMessage(fmt.Sprintf("Original request:\n%s\n\nRaw output:\n%s", originalRequest, raw)),
		},
		MaxSteps:   f.cfg.MaxSteps,
		MaxRetries: f.cfg.MaxRetries,
	})
	if err != nil {
		f.logger.Warn("formatter model call failed, using raw output", "error", err)
	} else if res.FinalOutput != "" {
		text = res.FinalOutput
	}
	return messagePayload(text)
}

// Passthrough renders raw output directly, without a model call.
type Passthrough struct{}

func (Passthrough) Format(_ context.Context, raw, _ string) (json.RawMessage, error) {
	return messagePayload(raw)
}

func messagePayload(text string) (json.RawMessage, error) {
	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &htmlBuf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return json.Marshal(Payload{
		Type: PayloadMessage,
		Text: text,
		HTML: htmlBuf.String(),
	})
}

// Cards is the default CardFactory.
type Cards struct{}

func (Cards) ApprovalCard(toolNames []string, approveToken, rejectToken string) (json.RawMessage, error) {
	return json.Marshal(Payload{
		Type: PayloadApprovalCard,
		Card: &Card{
			Title:        "Approval required",
			ToolNames:    toolNames,
			ApproveToken: approveToken,
			RejectToken:  rejectToken,
		},
	})
}
