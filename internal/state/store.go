package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// timeLayout keeps a fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrVersionNotFound is returned when a version id is unknown or belongs to another cow.
var ErrVersionNotFound = errors.New("version not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS cow_versions (
	version_id        TEXT PRIMARY KEY,
	parent_id         TEXT,
	cow_id            TEXT NOT NULL,
	herd_id           TEXT,
	phase             TEXT NOT NULL,
	days_in_milk      INTEGER NOT NULL,
	lactation_number  INTEGER NOT NULL,
	days_pregnant     INTEGER NOT NULL,
	milk_output       TEXT NOT NULL,
	age               INTEGER NOT NULL,
	age_at_first_heat INTEGER,
	precision         INTEGER NOT NULL,
	created_at        TEXT NOT NULL,
	note              TEXT,
	FOREIGN KEY (parent_id) REFERENCES cow_versions(version_id)
);
CREATE INDEX IF NOT EXISTS idx_cow_versions_cow ON cow_versions(cow_id, created_at);

CREATE TABLE IF NOT EXISTS generation_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT,
	cache_key     TEXT NOT NULL,
	herd_id       TEXT,
	states        INTEGER NOT NULL,
	edges         INTEGER,
	elapsed_ms    INTEGER NOT NULL,
	outcome       TEXT NOT NULL,
	error         TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_cow_state (
	cow_id        TEXT PRIMARY KEY,
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES cow_versions(version_id)
);
`
// #endregion schema

// #region store-struct
// Store manages versioned cow snapshots in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging, graph).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region snapshot
// Snapshot captures the current state of c as an uncommitted record.
func Snapshot(c *cow.Cow, parentID, note string) CowRecord {
	rec := CowRecord{
		VersionID: uuid.New().String(),
		ParentID:  parentID,
		CowID:     c.ID().String(),
		State:     c.State(),
		Age:       c.Age(),
		Precision: c.Precision(),
		CreatedAt: time.Now().UTC(),
		Note:      note,
	}
	if c.InHerd() {
		rec.HerdID = c.HerdID().String()
	}
	if age, ok := c.AgeAtFirstHeat(); ok {
		rec.AgeAtFirstHeat = age
	}
	return rec
}

// Restore rebuilds a cow outside any herd from rec. Milk output is recomputed once the
// cow joins a herd.
func Restore(rec CowRecord) (*cow.Cow, error) {
	id, err := uuid.Parse(rec.CowID)
	if err != nil {
		return nil, fmt.Errorf("restore cow id %q: %w", rec.CowID, err)
	}
	cfg := cow.Config{
		ID:              id,
		Phase:           rec.State.Phase.String(),
		DaysInMilk:      rec.State.DaysInMilk,
		LactationNumber: rec.State.LactationNumber,
		DaysPregnant:    rec.State.DaysPregnant,
		Age:             rec.Age,
		Precision:       rec.Precision,
	}
	if rec.AgeAtFirstHeat > 0 {
		age := rec.AgeAtFirstHeat
		cfg.AgeAtFirstHeat = &age
	}
	return cow.New(cfg)
}
// #endregion snapshot

// #region record-state
// RecordState commits a snapshot of c whose parent is the cow's active version, if any.
func (s *Store) RecordState(c *cow.Cow, note string) (CowRecord, error) {
	parent := ""
	cur, err := s.GetCurrent(c.ID().String())
	switch {
	case err == nil:
		parent = cur.VersionID
	case !errors.Is(err, ErrVersionNotFound):
		return CowRecord{}, err
	}
	rec := Snapshot(c, parent, note)
	if err := s.CommitState(rec); err != nil {
		return CowRecord{}, err
	}
	return rec, nil
}
// #endregion record-state

// #region get-current
// GetCurrent reads the active version of a cow.
func (s *Store) GetCurrent(cowID string) (CowRecord, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_cow_state WHERE cow_id = ?`, cowID).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return CowRecord{}, fmt.Errorf("get active %s: %w", cowID, ErrVersionNotFound)
	}
	if err != nil {
		return CowRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}
// #endregion get-current

// #region get-version
const versionColumns = `version_id, parent_id, cow_id, herd_id, phase, days_in_milk, lactation_number,
	days_pregnant, milk_output, age, age_at_first_heat, precision, created_at, note`

func scanRecord(row interface{ Scan(...any) error }) (CowRecord, error) {
	var rec CowRecord
	var parentID, herdID, note sql.NullString
	var firstHeat sql.NullInt64
	var phase, milk, createdStr string
	var dim, ln, dp, prec int

	if err := row.Scan(&rec.VersionID, &parentID, &rec.CowID, &herdID, &phase, &dim, &ln, &dp,
		&milk, &rec.Age, &firstHeat, &prec, &createdStr, &note); err != nil {
		return CowRecord{}, err
	}
	m, err := decimal.NewFromString(milk)
	if err != nil {
		return CowRecord{}, fmt.Errorf("version %s milk %q: %w", rec.VersionID, milk, err)
	}
	if rec.State, err = dairy.NewState(phase, dim, ln, dp, m); err != nil {
		return CowRecord{}, fmt.Errorf("version %s: %w", rec.VersionID, err)
	}
	rec.ParentID = parentID.String
	rec.HerdID = herdID.String
	rec.Note = note.String
	rec.AgeAtFirstHeat = int(firstHeat.Int64)
	rec.Precision = dairy.Precision(prec)
	rec.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return rec, nil
}

// GetVersion retrieves a specific cow version by ID.
func (s *Store) GetVersion(id string) (CowRecord, error) {
	rec, err := scanRecord(s.db.QueryRow(`SELECT `+versionColumns+` FROM cow_versions WHERE version_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return CowRecord{}, fmt.Errorf("get version %s: %w", id, ErrVersionNotFound)
	}
	if err != nil {
		return CowRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}
// #endregion get-version

// #region commit-state
// CommitState inserts a new version and moves the cow's active pointer to it atomically.
func (s *Store) CommitState(rec CowRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var firstHeat interface{}
	if rec.AgeAtFirstHeat > 0 {
		firstHeat = rec.AgeAtFirstHeat
	}

	_, err = tx.Exec(
		`INSERT INTO cow_versions (`+versionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, nullIfEmpty(rec.ParentID), rec.CowID, nullIfEmpty(rec.HerdID),
		rec.State.Phase.String(), rec.State.DaysInMilk, rec.State.LactationNumber, rec.State.DaysPregnant,
		rec.State.MilkOutput.String(), rec.Age, firstHeat, int(rec.Precision),
		rec.CreatedAt.Format(timeLayout), nullIfEmpty(rec.Note),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_cow_state (cow_id, version_id) VALUES (?, ?)
		 ON CONFLICT(cow_id) DO UPDATE SET version_id = excluded.version_id`,
		rec.CowID, rec.VersionID,
	)
	if err != nil {
		return fmt.Errorf("update active: %w", err)
	}

	return tx.Commit()
}
// #endregion commit-state

// #region rollback
// Rollback moves a cow's active pointer back to one of its earlier versions.
func (s *Store) Rollback(cowID, targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM cow_versions WHERE version_id = ? AND cow_id = ?`, targetVersionID, cowID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s of cow %s: %w", targetVersionID, cowID, ErrVersionNotFound)
	}

	_, err = s.db.Exec(`UPDATE active_cow_state SET version_id = ? WHERE cow_id = ?`, targetVersionID, cowID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
// #endregion rollback

// #region list-versions
// ListVersions returns the most recent versions of a cow, newest first.
func (s *Store) ListVersions(cowID string, limit int) ([]CowRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+versionColumns+` FROM cow_versions WHERE cow_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, cowID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []CowRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListCows returns the ids of every cow with an active version.
func (s *Store) ListCows() ([]string, error) {
	rows, err := s.db.Query(`SELECT cow_id FROM active_cow_state ORDER BY cow_id`)
	if err != nil {
		return nil, fmt.Errorf("list cows: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
// #endregion list-versions

// #region history
// History lists a cow's versions alongside the most recent generation logged for each.
func (s *Store) History(cowID string, limit int) ([]VersionWithGeneration, error) {
	versions, err := s.ListVersions(cowID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]VersionWithGeneration, 0, len(versions))
	for _, v := range versions {
		h := VersionWithGeneration{CowRecord: v}
		err := s.db.QueryRow(
			`SELECT cache_key, outcome, states FROM generation_log
			 WHERE version_id = ? ORDER BY id DESC LIMIT 1`, v.VersionID,
		).Scan(&h.CacheKey, &h.Outcome, &h.States)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("history generation: %w", err)
		}
		out = append(out, h)
	}
	return out, nil
}
// #endregion history

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
