// Package http implements the REST handlers of the analysis service. Handlers
// decode and validate requests, delegate to the services and batch layers,
// and render failures as RFC 7807 problem documents through
// internal/errors.
//
// Routes (mounted by internal/app):
//
//	GET  /api/v1/sectors    sector names
//	POST /api/v1/analysis   synchronous single-sector analysis
//	POST /api/v1/batch      start a background batch (202, progress on /ws)
//	GET  /api/v1/batch      running batch id and the last summary
//	GET  /healthz           directory and runtime health
package http
