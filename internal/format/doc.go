// ABOUTME: Package format turns raw planner output into renderable payloads.
// ABOUTME: Formatter and CardFactory front the external templating pipeline.

// Package format holds the gateway-side edge of the templating
// pipeline: a Formatter that shapes raw planner output into the
// terminal payload, and a CardFactory that builds approval cards. The
// model-backed formatter runs the runtime at its own, tighter bounds;
// markdown output is rendered to HTML with goldmark so transports can
// show rich text without re-parsing.
package format
