// Package middleware holds the HTTP middleware shared by the API router:
// rate limiting, request deadlines, CORS, security headers and
// OpenTelemetry request instrumentation.
package middleware
