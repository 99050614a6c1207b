package marketdata

import (
	"fmt"
	"time"
)

// Session is the intraday trading window kept by the loader.
type Session struct {
	Enabled bool
	Open    time.Duration // offset from midnight
	Close   time.Duration
}

// DefaultSession is the Taiwan continuous session, 09:01 to 13:30 inclusive.
func DefaultSession() Session {
	return Session{
		Enabled: true,
		Open:    9*time.Hour + 1*time.Minute,
		Close:   13*time.Hour + 30*time.Minute,
	}
}

// ParseSession builds a session from HH:MM bounds.
func ParseSession(openAt, closeAt string, enabled bool) (Session, error) {
	o, err := parseClock(openAt)
	if err != nil {
		return Session{}, fmt.Errorf("session open: %w", err)
	}
	c, err := parseClock(closeAt)
	if err != nil {
		return Session{}, fmt.Errorf("session close: %w", err)
	}
	if c < o {
		return Session{}, fmt.Errorf("session close %s before open %s", closeAt, openAt)
	}
	return Session{Enabled: enabled, Open: o, Close: c}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Contains reports whether ts falls within the session at minute
// resolution; both bounds are inclusive.
func (s Session) Contains(ts time.Time) bool {
	if !s.Enabled {
		return true
	}
	minute := time.Duration(ts.Hour())*time.Hour + time.Duration(ts.Minute())*time.Minute
	return minute >= s.Open && minute <= s.Close
}
