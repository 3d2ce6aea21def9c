// Package integrations provides the shared HTTP layer for code-host API
// clients.
//
// # Overview
//
// Each code host has its own subpackage:
//
//   - [github]: GitHub REST API (repository lookup and code search)
//
// # Shared Infrastructure
//
// The [Client] type provides functionality used by every host client:
//   - Default headers and bearer authentication ([NewHTTPClient])
//   - Retry with exponential backoff for network errors and 5xx responses
//   - Status classification into [ErrNotFound], [ErrRateLimited],
//     [ErrUnauthorized], [ErrForbidden] and [ErrNetwork]
//   - [ErrMalformedResponse] for bodies that fail to decode
//   - Optional response caching through [httputil.Cache]
//
// Rate limits are never retried inline: a [RateLimitError] is returned to the
// caller, which owns the backoff policy.
//
// # Adding a New Host
//
//  1. Create a subpackage: pkg/integrations/<host>/
//  2. Define response structs matching the API schema
//  3. Build requests through [NewClient]
//  4. Wire a fetch strategy into [fetch]
//
// [github]: github.com/matzehuels/pkgindex/pkg/integrations/github
// [httputil.Cache]: github.com/matzehuels/pkgindex/pkg/httputil.Cache
// [fetch]: github.com/matzehuels/pkgindex/pkg/fetch
package integrations
