// ABOUTME: Package planner runs the bounded agent loop for one request.
// ABOUTME: Classifies each round as complete or needing human approval.

// Package planner is the decision core of the gateway. One planning
// round loads conversation context (or resumes stored context), runs
// the model runtime with the tenant's tool set, and either returns the
// final output or persists an approve/reject command pair and returns
// the material for an approval card.
package planner
