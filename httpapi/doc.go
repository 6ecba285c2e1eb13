// Package httpapi exposes the execution engine over a small JSON REST API.
//
// Routes:
//
//	POST /api/execute    run {code, language, input} and return the result
//	GET  /api/languages  list accepted language tags
//	GET  /healthz        liveness probe
//
// Caller errors (missing fields, unknown language) answer 400, recovered
// engine panics answer 500, and every other outcome answers 200 with the
// result's success flag telling the story. The execute route is guarded by
// a token-bucket rate limiter that answers 429 when exhausted.
package httpapi
