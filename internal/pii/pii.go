// Package pii holds the REVEAL_PII toggle, read once at startup
// (spec §9), and the Redact helper that applies it. No log call in the
// module passes a value through Redact.
package pii

import "sync"

var (
	once    sync.Once
	reveal  bool
)

// Configure sets the process-wide reveal flag. Call once at startup.
func Configure(revealPII bool) {
	once.Do(func() {
		reveal = revealPII
	})
}

// Redact returns value unchanged if REVEAL_PII is enabled, otherwise a
// fixed redaction marker.
func Redact(value string) string {
	if reveal {
		return value
	}
	return "[redacted]"
}
