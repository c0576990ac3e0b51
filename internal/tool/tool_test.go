// ABOUTME: Tests for tool name helpers and the registry.
// ABOUTME: Collision detection and deterministic per-tenant resolution.

package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type stubTool struct {
	name string
}

func (s *stubTool) Name() string                { return s.name }
func (s *stubTool) Description() string         { return "stub" }
func (s *stubTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (s *stubTool) NeedsApproval() bool         { return false }
func (s *stubTool) Invoke(context.Context, json.RawMessage) (string, error) {
	return "ok", nil
}

func TestHumanName(t *testing.T) {
	cases := map[string]string{
		"schedule_interview": "Schedule Interview",
		"send_offer_letter":  "Send Offer Letter",
		"close_job":          "Close Job",
		"search":             "Search",
	}
	for in, want := range cases {
		if got := HumanName(in); got != want {
			t.Errorf("HumanName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLabel(t *testing.T) {
	if got := Label("schedule_interview"); got != "schedule interview" {
		t.Errorf("Label() = %q", got)
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := r.Get("alpha")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name() != "alpha" {
		t.Errorf("unexpected tool: %s", got.Name())
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistry_Collision(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&stubTool{name: "alpha"}); !errors.Is(err, ErrToolCollision) {
		t.Errorf("expected ErrToolCollision, got %v", err)
	}
}

func TestRegistry_ResolveForTenantSorted(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterAll([]Tool{
		&stubTool{name: "zeta"},
		&stubTool{name: "alpha"},
		&stubTool{name: "mid"},
	})
	if err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}

	tools := r.ResolveForTenant("tenant-1")
	if len(tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(tools))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if tools[i].Name() != name {
			t.Errorf("position %d: expected %s, got %s", i, name, tools[i].Name())
		}
	}
}
