// Package parse turns free-text chat messages into reminder drafts.
//
// The pipeline is pure: every function is a deterministic function of the
// message text and an injected reference instant, so behavior around "now"
// is testable without clocks.
package parse

import "time"

// Draft is a parsed reminder before it is persisted.
type Draft struct {
	Task string
	Due  time.Time
}

// Parse extracts a reminder draft from raw message text, resolving time
// expressions against ref. The second return value is false when the text
// contains no recognizable time expression; callers should re-prompt the
// user rather than treat that as an error.
func Parse(raw string, ref time.Time) (Draft, bool) {
	m, ok := Resolve(raw, ref)
	if !ok {
		return Draft{}, false
	}
	return Draft{
		Task: Extract(raw, m),
		Due:  m.Time,
	}, true
}
