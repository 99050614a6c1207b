// Package services holds the use cases shared by the CLI and the HTTP API:
// analysing one sector end to end, and reporting service health.
package services
