// ABOUTME: Package runtime abstracts the model/tool-execution loop.
// ABOUTME: One Run call alternates model turns and tool executions up to a step bound.

// Package runtime defines the model runtime consumed by the planner and
// formatter, plus the OpenAI-backed implementation. A runtime resolves
// tool inputs internally; callers only see the resulting content parts,
// the final text output, and the messages to append to conversation
// context. Tools flagged as needing approval are never executed inside
// Run; the runtime emits a tool-approval-request part instead and
// stops, leaving the decision to the caller.
package runtime
