// Package batch analyses many sectors concurrently, classifying each
// sector's outcome and reporting progress to a ProgressSink.
package batch
