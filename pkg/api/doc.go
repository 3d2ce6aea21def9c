// Package api serves stored packages over HTTP.
//
// # Routes
//
//	GET /packages                              list (source, q, limit)
//	GET /packages/{source}/{owner}/{repo}      one package, identifier owner/repo
//	GET /packages/{source}/{identifier}        one package, identifier verbatim
//	GET /healthz                               store reachability
//
// Every response body is a JSON envelope:
//
//	{"apiVersion": "2.0.0", "data": ...}
//	{"apiVersion": "2.0.0", "error": {"code": 404, "message": "not found"}}
//
// Requests that match no route, including unsupported methods on known
// paths, get 403 with the bare body {"code":403,"message":"forbidden"}.
// Errors without a known HTTP status become 500 "internal server error";
// their detail is logged and never sent to the client.
package api
