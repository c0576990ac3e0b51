// ABOUTME: Package stream frames a single logical response as ordered chunks.
// ABOUTME: Zero or more status chunks followed by exactly one terminal chunk.

// Package stream implements the chunk protocol shared by the gateway
// (producer side) and the transport bridges (consumer side).
//
// A Session multiplexes informational status text and one terminal
// payload over a single bounded channel. On the wire each chunk is one
// newline-delimited line; terminal chunks are distinguished by a
// sentinel prefix so a plain text channel can carry both kinds.
package stream
