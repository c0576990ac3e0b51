// ABOUTME: Directory is the external collaborator holding candidate/job records.
// ABOUTME: The core only calls it from tool handlers; persistence is its problem.

package builtins

import (
	"context"
	"time"
)

// Candidate is a person in the hiring pipeline.
type Candidate struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// Job is an open or closed position.
type Job struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

// Interview is a scheduled conversation between a candidate and a panel.
type Interview struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidate_id"`
	JobID       string    `json:"job_id"`
	At          time.Time `json:"at"`
}

// Directory is the HR system of record the tools operate on.
type Directory interface {
	SearchCandidates(ctx context.Context, query string) ([]Candidate, error)
	GetJob(ctx context.Context, jobID string) (*Job, error)
	OpenJobs(ctx context.Context) ([]Job, error)
	ScheduleInterview(ctx context.Context, candidateID, jobID string, at time.Time) (*Interview, error)
	SendOfferLetter(ctx context.Context, candidateID, jobID string) (string, error)
	CloseJob(ctx context.Context, jobID string) error
}
