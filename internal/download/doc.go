// Package download fetches the Min and TAMin archives of a sector's stocks
// from the tick server through an external command-line tool, then unpacks
// them next to the archive.
//
// The tool is opaque: a Command names the binary and an argument template,
// and a Runner executes one job at a time, paced by a rate limiter and
// retried with exponential backoff. Archives already on disk are skipped, so
// an interrupted run can simply be repeated.
package download
