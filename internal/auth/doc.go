// ABOUTME: Package auth resolves tenant credentials for inbound requests.
// ABOUTME: Bearer JWTs map to persisted tenants; resolution fails closed.

// Package auth handles tenant identity. A tenant credential is the
// per-organization grant of tool access: requests present an HS256 JWT
// whose subject is the tenant id, and the resolver maps it to the
// persisted tenant record. There is no ambient fallback: a request
// without a resolvable credential gets no tool access at all.
package auth
