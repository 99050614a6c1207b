package batch

import "time"

// EventType names a batch progress event.
type EventType string

const (
	EventBatchStarted   EventType = "batch:started"
	EventSectorStarted  EventType = "batch:sector_started"
	EventSectorFinished EventType = "batch:sector_finished"
	EventBatchFinished  EventType = "batch:finished"
)

// Event reports batch progress. Outcome is set on sector_finished, Summary
// on finished.
type Event struct {
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	Sector    string         `json:"sector,omitempty"`
	Index     int            `json:"index,omitempty"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Outcome   *SectorOutcome `json:"outcome,omitempty"`
	Summary   *Summary       `json:"summary,omitempty"`
	Time      time.Time      `json:"time"`
}

// ProgressSink receives batch events. Publish is called from worker
// goroutines and must not block for long.
type ProgressSink interface {
	Publish(Event)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

// Publish calls f.
func (f SinkFunc) Publish(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Publish(Event) {}

// MultiSink fans events out to several sinks.
func MultiSink(sinks ...ProgressSink) ProgressSink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Publish(e)
			}
		}
	})
}
