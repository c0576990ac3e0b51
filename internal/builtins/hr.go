// ABOUTME: HR tool pack: candidate/job lookups plus approval-gated actions.
// ABOUTME: Each tool declares its schema and approval flag as static metadata.

package builtins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hireloop/hireloop-gateway/internal/tool"
)

// ErrNotFound is returned by tool handlers for unknown records.
var ErrNotFound = errors.New("not found")

// hrTool adapts a declaration plus handler to the tool.Tool interface.
type hrTool struct {
	name          string
	description   string
	schema        map[string]any
	needsApproval bool
	handler       func(ctx context.Context, input json.RawMessage) (string, error)
}

func (t *hrTool) Name() string                { return t.name }
func (t *hrTool) Description() string         { return t.description }
func (t *hrTool) InputSchema() map[string]any { return t.schema }
func (t *hrTool) NeedsApproval() bool         { return t.needsApproval }

func (t *hrTool) Invoke(ctx context.Context, input json.RawMessage) (string, error) {
	return t.handler(ctx, input)
}

// HRPack builds the tool set backed by the given directory.
func HRPack(dir Directory) []tool.Tool {
	h := &hrHandlers{dir: dir}
	return []tool.Tool{
		&hrTool{
			name:        "search_candidates",
			description: "Search candidates by name, role or status",
			schema: objectSchema(map[string]any{
				"query": map[string]any{"type": "string"},
			}, "query"),
			handler: h.SearchCandidates,
		},
		&hrTool{
			name:        "list_open_jobs",
			description: "List currently open job positions",
			schema:      objectSchema(map[string]any{}),
			handler:     h.ListOpenJobs,
		},
		&hrTool{
			name:        "get_job_details",
			description: "Get details of a job by its id",
			schema: objectSchema(map[string]any{
				"job_id": map[string]any{"type": "string"},
			}, "job_id"),
			handler: h.GetJobDetails,
		},
		&hrTool{
			name:        "schedule_interview",
			description: "Schedule an interview between a candidate and a job panel",
			schema: objectSchema(map[string]any{
				"candidate_id": map[string]any{"type": "string"},
				"job_id":       map[string]any{"type": "string"},
				"at":           map[string]any{"type": "string", "format": "date-time"},
			}, "candidate_id", "job_id", "at"),
			needsApproval: true,
			handler:       h.ScheduleInterview,
		},
		&hrTool{
			name:        "send_offer_letter",
			description: "Send an offer letter to a candidate for a job",
			schema: objectSchema(map[string]any{
				"candidate_id": map[string]any{"type": "string"},
				"job_id":       map[string]any{"type": "string"},
			}, "candidate_id", "job_id"),
			needsApproval: true,
			handler:       h.SendOfferLetter,
		},
		&hrTool{
			name:        "close_job",
			description: "Mark a job position as closed",
			schema: objectSchema(map[string]any{
				"job_id": map[string]any{"type": "string"},
			}, "job_id"),
			needsApproval: true,
			handler:       h.CloseJob,
		},
	}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

type hrHandlers struct {
	dir Directory
}

func (h *hrHandlers) SearchCandidates(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("parsing input: %w", err)
	}
	candidates, err := h.dir.SearchCandidates(ctx, args.Query)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "No candidates matched.", nil
	}
	return encodeJSON(candidates)
}

func (h *hrHandlers) ListOpenJobs(ctx context.Context, _ json.RawMessage) (string, error) {
	jobs, err := h.dir.OpenJobs(ctx)
	if err != nil {
		return "", err
	}
	if len(jobs) == 0 {
		return "No open jobs.", nil
	}
	return encodeJSON(jobs)
}

func (h *hrHandlers) GetJobDetails(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("parsing input: %w", err)
	}
	job, err := h.dir.GetJob(ctx, args.JobID)
	if err != nil {
		return "", err
	}
	return encodeJSON(job)
}

func (h *hrHandlers) ScheduleInterview(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		CandidateID string `json:"candidate_id"`
		JobID       string `json:"job_id"`
		At          string `json:"at"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("parsing input: %w", err)
	}
	at, err := time.Parse(time.RFC3339, args.At)
	if err != nil {
		return "", fmt.Errorf("parsing interview time: %w", err)
	}
	interview, err := h.dir.ScheduleInterview(ctx, args.CandidateID, args.JobID, at)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Interview %s scheduled for candidate %s on %s.",
		interview.ID, interview.CandidateID, interview.At.Format(time.RFC1123)), nil
}

func (h *hrHandlers) SendOfferLetter(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		CandidateID string `json:"candidate_id"`
		JobID       string `json:"job_id"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("parsing input: %w", err)
	}
	ref, err := h.dir.SendOfferLetter(ctx, args.CandidateID, args.JobID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Offer letter %s sent to candidate %s.", ref, args.CandidateID), nil
}

func (h *hrHandlers) CloseJob(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("parsing input: %w", err)
	}
	if err := h.dir.CloseJob(ctx, args.JobID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Job %s closed.", args.JobID), nil
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(data), nil
}
