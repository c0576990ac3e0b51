// ABOUTME: Tool interface and helpers shared by the registry and builtin packs.
// ABOUTME: NeedsApproval is a static property of the definition, not of a call.

package tool

import (
	"context"
	"encoding/json"
	"strings"
)

// Tool is a single capability the model runtime may invoke.
type Tool interface {
	// Name is the machine name, lower_snake_case.
	Name() string
	// Description tells the model when to use the tool.
	Description() string
	// InputSchema is the JSON Schema for the tool input object.
	InputSchema() map[string]any
	// NeedsApproval reports whether invoking this tool requires a human
	// sign-off before execution.
	NeedsApproval() bool
	// Invoke executes the tool and returns its textual result.
	Invoke(ctx context.Context, input json.RawMessage) (string, error)
}

// HumanName converts a machine tool name into a label for people:
// underscores become spaces and each word is capitalized, so
// "schedule_interview" renders as "Schedule Interview".
func HumanName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Label converts a machine tool name into progress-label form with
// underscores replaced by spaces, keeping the original casing.
func Label(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
