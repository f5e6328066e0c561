package logging

import "time"

// Outcome values written to generation_log.
const (
	OutcomeGenerated = "generated"
	OutcomeFailed    = "failed"
	OutcomePersisted = "persisted"
)

// #region generation-entry
// GenerationEntry is a single row in the generation_log table.
type GenerationEntry struct {
	VersionID string // cow version the chain was generated for, if any
	CacheKey  string
	HerdID    string
	States    int
	Edges     int // 0 when the edges were not enumerated
	Elapsed   time.Duration
	Outcome   string
	Error     string
	CreatedAt time.Time
}
// #endregion generation-entry
