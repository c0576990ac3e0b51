// ABOUTME: In-memory Directory implementation with seed data.
// ABOUTME: Used for development and tests; production wires a real ATS.

package builtins

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDirectory is a thread-safe in-memory Directory.
type MemoryDirectory struct {
	mu         sync.RWMutex
	candidates []Candidate
	jobs       map[string]*Job
	interviews []Interview
	offers     []string
}

// NewMemoryDirectory creates a directory pre-seeded with a small
// candidate pool and a few open positions.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		candidates: []Candidate{
			{ID: "cand-001", Name: "Dana Whitfield", Role: "Backend Engineer", Status: "interviewing"},
			{ID: "cand-002", Name: "Marcus Oyelaran", Role: "Backend Engineer", Status: "screening"},
			{ID: "cand-003", Name: "Priya Raghavan", Role: "Product Designer", Status: "offer"},
			{ID: "cand-004", Name: "Tomas Lindqvist", Role: "Data Analyst", Status: "applied"},
		},
		jobs: map[string]*Job{
			"job-101": {ID: "job-101", Title: "Backend Engineer", Location: "Remote", Status: "open"},
			"job-102": {ID: "job-102", Title: "Product Designer", Location: "Berlin", Status: "open"},
			"job-103": {ID: "job-103", Title: "Data Analyst", Location: "London", Status: "open"},
		},
	}
}

// SearchCandidates matches the query against name, role and status,
// case-insensitively. An empty query returns everyone.
func (d *MemoryDirectory) SearchCandidates(_ context.Context, query string) ([]Candidate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []Candidate
	for _, c := range d.candidates {
		if q == "" ||
			strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Role), q) ||
			strings.Contains(strings.ToLower(c.Status), q) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *MemoryDirectory) GetJob(_ context.Context, jobID string) (*Job, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	job, ok := d.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	copied := *job
	return &copied, nil
}

func (d *MemoryDirectory) OpenJobs(_ context.Context) ([]Job, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Job
	for _, job := range d.jobs {
		if job.Status == "open" {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (d *MemoryDirectory) ScheduleInterview(_ context.Context, candidateID, jobID string, at time.Time) (*Interview, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.jobs[jobID]; !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	interview := Interview{
		ID:          "int-" + uuid.New().String()[:8],
		CandidateID: candidateID,
		JobID:       jobID,
		At:          at,
	}
	d.interviews = append(d.interviews, interview)
	return &interview, nil
}

func (d *MemoryDirectory) SendOfferLetter(_ context.Context, candidateID, jobID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.jobs[jobID]; !ok {
		return "", fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	ref := "offer-" + uuid.New().String()[:8]
	d.offers = append(d.offers, ref)
	return ref, nil
}

func (d *MemoryDirectory) CloseJob(_ context.Context, jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	job, ok := d.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	job.Status = "closed"
	return nil
}

// Interviews returns scheduled interviews, for test assertions.
func (d *MemoryDirectory) Interviews() []Interview {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Interview(nil), d.interviews...)
}
