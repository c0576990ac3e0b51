// ABOUTME: Package bridge interprets the chunk protocol for transport adapters.
// ABOUTME: Maps chunks to live activity updates and one terminal render.

// Package bridge is the transport-side consumer of the chunk stream.
// It reads chunks in arrival order, renders status chunks as updates to
// a single in-progress activity, and renders the terminal chunk as a
// message or card that references the same provider-assigned activity
// id, waiting for that id when the terminal chunk arrives before the
// first status render has completed.
package bridge
