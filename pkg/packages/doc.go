// Package packages defines the canonical package record produced by every
// fetcher and consumed by the store and the HTTP API.
//
// # Addressing
//
// A [Package] is addressed by its source and a source-scoped identifier.
// [Key] joins the two into the single store key used by both the crawl
// writer and the API reader:
//
//	packages.Key(packages.SourceGitHub, "acme/widget") // "github:acme/widget"
//
// [SplitIdentifier] and [JoinIdentifier] convert between the "owner/repo"
// identifier form and its parts.
package packages
