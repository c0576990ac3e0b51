// ABOUTME: Package builtins provides the HR tool pack offered to the planner.
// ABOUTME: Sensitive actions declare NeedsApproval and are gated on human sign-off.

// Package builtins defines the HR assistant's backend tools. Read-only
// lookups (candidate search, job details) run freely; actions with
// outside effect (scheduling interviews, sending offers, closing jobs)
// are declared approval-gated and never execute without a decision.
// Business records live behind the Directory interface; the gateway
// ships with an in-memory directory, production wires an ATS.
package builtins
