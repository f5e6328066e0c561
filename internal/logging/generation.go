package logging

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// #region log-generation
// LogGeneration writes an entry to the generation_log table.
func LogGeneration(db *sql.DB, entry GenerationEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var edges interface{}
	if entry.Edges > 0 {
		edges = entry.Edges
	}

	_, err := db.Exec(
		`INSERT INTO generation_log (version_id, cache_key, herd_id, states, edges, elapsed_ms, outcome, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.VersionID),
		entry.CacheKey,
		nullIfEmpty(entry.HerdID),
		entry.States,
		edges,
		entry.Elapsed.Milliseconds(),
		entry.Outcome,
		nullIfEmpty(entry.Error),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log generation: %w", err)
	}
	return nil
}
// #endregion log-generation

// #region recorder
// Recorder writes every chain generation to generation_log. Write failures are logged
// and otherwise ignored so a generation never fails on bookkeeping.
type Recorder struct {
	DB     *sql.DB
	HerdID string
	Logger *slog.Logger
}

func (r *Recorder) ObserveGeneration(key string, states int, elapsed time.Duration, err error) {
	entry := GenerationEntry{
		CacheKey: key,
		HerdID:   r.HerdID,
		States:   states,
		Elapsed:  elapsed,
		Outcome:  OutcomeGenerated,
	}
	if err != nil {
		entry.Outcome = OutcomeFailed
		entry.Error = err.Error()
	}
	if werr := LogGeneration(r.DB, entry); werr != nil && r.Logger != nil {
		r.Logger.Warn("generation log write failed", "key", key, "error", werr)
	}
}
// #endregion recorder

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
