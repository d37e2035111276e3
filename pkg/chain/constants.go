package chain

import "time"

// Default configuration constants for the chain engine.
const (
	// DefaultGraceTicks is the tolerance Contains and Add's duplicate-key
	// check use when deciding whether two instants name "the same" slice
	// boundary. 100 microseconds, in line with the ~1000-tick grace window
	// the original engine used (1 tick = 100ns).
	DefaultGraceTicks = 100 * time.Microsecond

	// DefaultAuditHistorySize caps the in-memory ring buffer of AuditEntry
	// records a chain retains after successful Add calls.
	DefaultAuditHistorySize = 100
)
