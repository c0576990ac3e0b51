// ABOUTME: Tests for the HR tool pack against the in-memory directory.
// ABOUTME: Approval flags, input validation, and handler effects.

package builtins

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hireloop/hireloop-gateway/internal/tool"
)

func packByName(t *testing.T, dir Directory) map[string]tool.Tool {
	t.Helper()
	tools := HRPack(dir)
	out := make(map[string]tool.Tool, len(tools))
	for _, tl := range tools {
		out[tl.Name()] = tl
	}
	return out
}

func TestHRPack_ApprovalFlags(t *testing.T) {
	pack := packByName(t, NewMemoryDirectory())

	gated := map[string]bool{
		"search_candidates":  false,
		"list_open_jobs":     false,
		"get_job_details":    false,
		"schedule_interview": true,
		"send_offer_letter":  true,
		"close_job":          true,
	}
	if len(pack) != len(gated) {
		t.Fatalf("expected %d tools, got %d", len(gated), len(pack))
	}
	for name, want := range gated {
		tl, ok := pack[name]
		if !ok {
			t.Errorf("missing tool %s", name)
			continue
		}
		if tl.NeedsApproval() != want {
			t.Errorf("%s: NeedsApproval() = %v, want %v", name, tl.NeedsApproval(), want)
		}
	}
}

func TestHRPack_SchemasAreObjects(t *testing.T) {
	pack := packByName(t, NewMemoryDirectory())
	for name, tl := range pack {
		schema := tl.InputSchema()
		if schema["type"] != "object" {
			t.Errorf("%s: schema type = %v", name, schema["type"])
		}
		if tl.Description() == "" {
			t.Errorf("%s: empty description", name)
		}
	}
}

func TestSearchCandidates(t *testing.T) {
	pack := packByName(t, NewMemoryDirectory())
	ctx := context.Background()

	out, err := pack["search_candidates"].Invoke(ctx, json.RawMessage(`{"query":"backend"}`))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !strings.Contains(out, "Dana Whitfield") || !strings.Contains(out, "Marcus Oyelaran") {
		t.Errorf("unexpected search result: %s", out)
	}

	out, err = pack["search_candidates"].Invoke(ctx, json.RawMessage(`{"query":"zzz-nobody"}`))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if out != "No candidates matched." {
		t.Errorf("expected empty-result text, got %s", out)
	}
}

func TestScheduleInterview(t *testing.T) {
	dir := NewMemoryDirectory()
	pack := packByName(t, dir)
	ctx := context.Background()

	input := json.RawMessage(`{"candidate_id":"cand-001","job_id":"job-101","at":"2026-09-15T10:00:00Z"}`)
	out, err := pack["schedule_interview"].Invoke(ctx, input)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !strings.Contains(out, "cand-001") {
		t.Errorf("unexpected result: %s", out)
	}

	interviews := dir.Interviews()
	if len(interviews) != 1 {
		t.Fatalf("expected 1 interview, got %d", len(interviews))
	}
	if interviews[0].JobID != "job-101" {
		t.Errorf("unexpected interview: %+v", interviews[0])
	}
}

func TestScheduleInterview_BadTime(t *testing.T) {
	pack := packByName(t, NewMemoryDirectory())

	input := json.RawMessage(`{"candidate_id":"cand-001","job_id":"job-101","at":"next tuesday"}`)
	if _, err := pack["schedule_interview"].Invoke(context.Background(), input); err == nil {
		t.Error("expected error for unparseable time")
	}
}

func TestCloseJob(t *testing.T) {
	dir := NewMemoryDirectory()
	pack := packByName(t, dir)
	ctx := context.Background()

	if _, err := pack["close_job"].Invoke(ctx, json.RawMessage(`{"job_id":"job-103"}`)); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	job, err := dir.GetJob(ctx, "job-103")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Status != "closed" {
		t.Errorf("expected job closed, got %s", job.Status)
	}

	out, err := pack["list_open_jobs"].Invoke(ctx, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if strings.Contains(out, "job-103") {
		t.Errorf("closed job still listed as open: %s", out)
	}
}

func TestGetJobDetails_Unknown(t *testing.T) {
	pack := packByName(t, NewMemoryDirectory())

	_, err := pack["get_job_details"].Invoke(context.Background(), json.RawMessage(`{"job_id":"job-999"}`))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSendOfferLetter(t *testing.T) {
	pack := packByName(t, NewMemoryDirectory())

	out, err := pack["send_offer_letter"].Invoke(context.Background(),
		json.RawMessage(`{"candidate_id":"cand-003","job_id":"job-102"}`))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !strings.Contains(out, "cand-003") || !strings.Contains(out, "offer-") {
		t.Errorf("unexpected result: %s", out)
	}
}
