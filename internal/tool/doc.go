// ABOUTME: Package tool defines the capability interface for backend tools.
// ABOUTME: Approval requirements are declared metadata, not probed at call time.

// Package tool models the tools the planner can hand to the model
// runtime. Each tool declares its name, schema and whether invoking it
// requires human approval; the registry resolves the set available to a
// tenant once at credential-resolution time.
package tool
