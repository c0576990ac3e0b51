// ABOUTME: Matrix renderer for gateway activity streams.
// ABOUTME: Status updates edit one message in place; the terminal payload replaces it.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/hireloop/hireloop-gateway/internal/bridge"
	"github.com/hireloop/hireloop-gateway/internal/format"
)

// roomRenderer renders one session's activities into a Matrix room.
// The first status creates a message; later statuses edit it so the
// room shows a single in-progress line instead of a scrollback of them.
type roomRenderer struct {
	matrix *mautrix.Client
	roomID id.RoomID
	logger *slog.Logger
}

func newRoomRenderer(matrix *mautrix.Client, roomID id.RoomID, logger *slog.Logger) *roomRenderer {
	return &roomRenderer{matrix: matrix, roomID: roomID, logger: logger}
}

// sendTimeout bounds individual Matrix send calls.
const sendTimeout = 30 * time.Second

func (r *roomRenderer) RenderStatus(ctx context.Context, a bridge.Activity) (string, error) {
	content := event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    a.Text,
	}
	if a.StreamID != "" {
		content.SetEdit(id.EventID(a.StreamID))
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	resp, err := r.matrix.SendMessageEvent(sendCtx, r.roomID, event.EventMessage, &content)
	if err != nil {
		return "", fmt.Errorf("sending status: %w", err)
	}
	if a.StreamID != "" {
		return a.StreamID, nil
	}
	return resp.EventID.String(), nil
}

func (r *roomRenderer) RenderFinal(ctx context.Context, a bridge.Activity) error {
	body, formatted := r.finalContent(a)

	content := event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    body,
	}
	if formatted != "" {
		content.Format = event.FormatHTML
		content.FormattedBody = formatted
	}
	// Replace the status line rather than appending below it.
	if a.StreamID != "" {
		content.SetEdit(id.EventID(a.StreamID))
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if _, err := r.matrix.SendMessageEvent(sendCtx, r.roomID, event.EventMessage, &content); err != nil {
		return fmt.Errorf("sending final message: %w", err)
	}
	return nil
}

// finalContent converts the terminal activity into Matrix body text and
// optional HTML. Unparseable payloads degrade to their raw text.
func (r *roomRenderer) finalContent(a bridge.Activity) (body, formatted string) {
	if len(a.Payload) == 0 {
		return a.Text, ""
	}

	var payload format.Payload
	if err := json.Unmarshal(a.Payload, &payload); err != nil {
		r.logger.Warn("unparseable terminal payload", "error", err)
		return string(a.Payload), ""
	}

	switch payload.Type {
	case format.PayloadApprovalCard:
		if payload.Card != nil {
			return cardBody(payload.Card), cardHTML(payload.Card)
		}
	case format.PayloadMessage:
		return payload.Text, payload.HTML
	}
	if payload.Text != "" {
		return payload.Text, payload.HTML
	}
	return string(a.Payload), ""
}

// cardBody renders an approval card as plain text for clients without
// HTML support.
func cardBody(c *format.Card) string {
	var b strings.Builder
	b.WriteString(c.Title)
	b.WriteString("\n")
	for _, name := range c.ToolNames {
		b.WriteString("  • ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Reply %s to approve or %s to reject.", c.ApproveToken, c.RejectToken)
	return b.String()
}

func cardHTML(c *format.Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<strong>%s</strong><ul>", html.EscapeString(c.Title))
	for _, name := range c.ToolNames {
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(name))
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "Reply <code>%s</code> to approve or <code>%s</code> to reject.",
		html.EscapeString(c.ApproveToken), html.EscapeString(c.RejectToken))
	return b.String()
}
