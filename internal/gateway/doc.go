// ABOUTME: Package gateway is the request entry point and server orchestrator.
// ABOUTME: Streams chunk responses and guarantees one session close per request.

// Package gateway wires the orchestration core together: it resolves
// tenant credentials, runs planning rounds, consults the approval
// ledger for resumed commands, and frames every response through a
// stream session that is opened once and closed exactly once on every
// exit path. The HTTP API exposes the two logical operations, message
// and command, as streamed POST endpoints.
package gateway
