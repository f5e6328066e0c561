package logging

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE generation_log (
		version_id TEXT,
		cache_key  TEXT NOT NULL,
		herd_id    TEXT,
		states     INTEGER NOT NULL,
		edges      INTEGER,
		elapsed_ms INTEGER NOT NULL,
		outcome    TEXT NOT NULL,
		error      TEXT,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-generation-tests
func TestLogGeneration_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := GenerationEntry{
		VersionID: "v1",
		CacheKey:  "abc123/dim=40/ln=2/prec=10",
		HerdID:    "h1",
		States:    414,
		Edges:     822,
		Elapsed:   1500 * time.Millisecond,
		Outcome:   OutcomePersisted,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogGeneration(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM generation_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var key, outcome string
	var states, edges, elapsed int
	db.QueryRow("SELECT cache_key, outcome, states, edges, elapsed_ms FROM generation_log").
		Scan(&key, &outcome, &states, &edges, &elapsed)
	if key != entry.CacheKey || outcome != "persisted" {
		t.Errorf("unexpected row: key %q outcome %q", key, outcome)
	}
	if states != 414 || edges != 822 || elapsed != 1500 {
		t.Errorf("unexpected counts: %d %d %d", states, edges, elapsed)
	}
}

func TestLogGeneration_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogGeneration(db, GenerationEntry{CacheKey: "k", Outcome: OutcomeGenerated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM generation_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogGeneration_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogGeneration(db, GenerationEntry{CacheKey: "k", States: 3, Outcome: OutcomeGenerated}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var versionID, herdID, errText sql.NullString
	var edges sql.NullInt64
	db.QueryRow("SELECT version_id, herd_id, error, edges FROM generation_log").Scan(
		&versionID, &herdID, &errText, &edges,
	)
	if versionID.Valid || herdID.Valid || errText.Valid {
		t.Error("expected NULL for empty strings")
	}
	if edges.Valid {
		t.Error("expected NULL edges when not enumerated")
	}
}

func TestLogGeneration_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogGeneration(db, GenerationEntry{CacheKey: "k", Outcome: OutcomeGenerated}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-generation-tests

// #region recorder-tests
func TestRecorderWritesOutcome(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	r := &Recorder{DB: db, HerdID: "h1"}
	r.ObserveGeneration("ok", 414, time.Second, nil)
	r.ObserveGeneration("bad", 0, time.Millisecond, errors.New("unindexed successor"))

	rows, err := db.Query("SELECT cache_key, outcome, COALESCE(error, '') FROM generation_log ORDER BY rowid")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var key, outcome, msg string
		rows.Scan(&key, &outcome, &msg)
		got = append(got, key+":"+outcome+":"+msg)
	}
	want := []string{"ok:generated:", "bad:failed:unindexed successor"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRecorderLogsWriteFailure(t *testing.T) {
	db := setupDB(t)
	db.Close()

	var buf bytes.Buffer
	logger, _ := NewLogger("text", "warn", &buf)
	r := &Recorder{DB: db, Logger: logger}
	r.ObserveGeneration("k", 1, time.Millisecond, nil)

	if !strings.Contains(buf.String(), "generation log write failed") {
		t.Errorf("expected warning, got %q", buf.String())
	}
}

// #endregion recorder-tests

// #region logger-tests
func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("json", "info", &buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("chain generated", "states", 414)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "chain generated" || rec["states"] != float64(414) {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNewLogger_BadInput(t *testing.T) {
	if _, err := NewLogger("xml", "info", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := NewLogger("text", "loud", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown level")
	}
}

// #endregion logger-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	result := nullIfEmpty("")
	if result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	result := nullIfEmpty("hello")
	if result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
