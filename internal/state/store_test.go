package state

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd/herdtest"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func herdCow(t *testing.T, cfg cow.Config) *cow.Cow {
	t.Helper()
	h, err := cow.NewHerd(herdtest.Small())
	if err != nil {
		t.Fatalf("NewHerd: %v", err)
	}
	c, err := cow.New(cfg)
	if err != nil {
		t.Fatalf("cow.New: %v", err)
	}
	if err := h.Add(c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return c
}

func TestRecordStateAndGetCurrent(t *testing.T) {
	s := tempDB(t)
	heat := 380
	c := herdCow(t, cow.Config{LactationNumber: 1, DaysInMilk: 2, Age: 800, AgeAtFirstHeat: &heat})

	rec, err := s.RecordState(c, "calved")
	if err != nil {
		t.Fatalf("RecordState: %v", err)
	}
	if rec.VersionID == "" {
		t.Fatal("expected non-empty version ID")
	}
	if rec.ParentID != "" {
		t.Fatalf("expected empty parent, got %s", rec.ParentID)
	}

	cur, err := s.GetCurrent(c.ID().String())
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if cur.VersionID != rec.VersionID {
		t.Fatalf("expected %s, got %s", rec.VersionID, cur.VersionID)
	}
	if !cur.State.Equal(c.State()) {
		t.Errorf("expected state %s, got %s", c.State(), cur.State)
	}
	if !cur.State.MilkOutput.Equal(decimal.RequireFromString("18.4652097840")) {
		t.Errorf("milk output not stored exactly: %s", cur.State.MilkOutput)
	}
	if cur.AgeAtFirstHeat != 380 || cur.Age != 800 || cur.Note != "calved" || cur.HerdID != c.HerdID().String() {
		t.Errorf("unexpected record: %+v", cur)
	}
}

func TestRecordAndRollback(t *testing.T) {
	s := tempDB(t)
	c := herdCow(t, cow.Config{})

	v1, err := s.RecordState(c, "")
	if err != nil {
		t.Fatalf("RecordState v1: %v", err)
	}
	if err := c.SetDaysInMilk(5); err != nil {
		t.Fatalf("SetDaysInMilk: %v", err)
	}
	v2, err := s.RecordState(c, "day 5")
	if err != nil {
		t.Fatalf("RecordState v2: %v", err)
	}
	if v2.ParentID != v1.VersionID {
		t.Fatalf("expected parent %s, got %s", v1.VersionID, v2.ParentID)
	}

	cur, _ := s.GetCurrent(c.ID().String())
	if cur.State.DaysInMilk != 5 {
		t.Fatalf("expected dim 5, got %d", cur.State.DaysInMilk)
	}

	// Rollback to v1
	if err := s.Rollback(c.ID().String(), v1.VersionID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	cur, _ = s.GetCurrent(c.ID().String())
	if cur.VersionID != v1.VersionID {
		t.Fatalf("expected %s after rollback, got %s", v1.VersionID, cur.VersionID)
	}
}

func TestRollbackNonExistent(t *testing.T) {
	s := tempDB(t)
	c := herdCow(t, cow.Config{})
	s.RecordState(c, "")

	err := s.Rollback(c.ID().String(), "nonexistent-id")
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestRollbackRejectsOtherCowsVersion(t *testing.T) {
	s := tempDB(t)
	a := herdCow(t, cow.Config{})
	b := herdCow(t, cow.Config{})
	s.RecordState(a, "")
	vb, _ := s.RecordState(b, "")

	err := s.Rollback(a.ID().String(), vb.VersionID)
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestListVersionsAndCows(t *testing.T) {
	s := tempDB(t)
	c := herdCow(t, cow.Config{})
	other := herdCow(t, cow.Config{})

	s.RecordState(c, "")
	c.SetDaysInMilk(1)
	s.RecordState(c, "")
	s.RecordState(other, "")

	versions, err := s.ListVersions(c.ID().String(), 10)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].State.DaysInMilk != 1 {
		t.Errorf("expected newest first, got dim %d", versions[0].State.DaysInMilk)
	}

	cows, err := s.ListCows()
	if err != nil {
		t.Fatalf("ListCows: %v", err)
	}
	if len(cows) != 2 {
		t.Errorf("expected 2 cows, got %d", len(cows))
	}
}

func TestRestore(t *testing.T) {
	s := tempDB(t)
	heat := 365
	c := herdCow(t, cow.Config{Phase: "Pregnant", DaysInMilk: 20, LactationNumber: 1, DaysPregnant: 3, AgeAtFirstHeat: &heat})
	rec, _ := s.RecordState(c, "")

	got, err := Restore(rec)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got.ID() != c.ID() {
		t.Errorf("expected id %s, got %s", c.ID(), got.ID())
	}
	if got.State().Phase != dairy.Pregnant || got.State().DaysPregnant != 3 {
		t.Errorf("unexpected restored state %s", got.State())
	}
	if age, ok := got.AgeAtFirstHeat(); !ok || age != 365 {
		t.Errorf("expected first heat at 365, got %d %v", age, ok)
	}
	if got.InHerd() {
		t.Error("restored cow should be outside any herd")
	}

	rec.CowID = "not-a-uuid"
	if _, err := Restore(rec); err == nil {
		t.Error("expected error for bad cow id")
	}
}

func TestHistoryJoinsGenerationLog(t *testing.T) {
	s := tempDB(t)
	c := herdCow(t, cow.Config{})
	v1, _ := s.RecordState(c, "")
	v2, _ := s.RecordState(c, "")

	_, err := s.DB().Exec(
		`INSERT INTO generation_log (version_id, cache_key, states, edges, elapsed_ms, outcome, created_at)
		 VALUES (?, 'k', 414, 822, 3, 'generated', ?)`,
		v1.VersionID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		t.Fatalf("seed generation: %v", err)
	}

	history, err := s.History(c.ID().String(), 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	for _, h := range history {
		switch h.VersionID {
		case v1.VersionID:
			if h.States != 414 || h.Outcome != "generated" {
				t.Errorf("expected generation on v1, got %+v", h)
			}
		case v2.VersionID:
			if h.Outcome != "" {
				t.Errorf("v2 has no generation, got %q", h.Outcome)
			}
		}
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(os.DevNull, "nope", "test.db"))
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestGetVersionNotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetVersion("nonexistent")
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestGetCurrentUnknownCow(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetCurrent("nobody")
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

// #region corrupt-db
func corruptDB(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	s := tempDB(t)
	return s, s.DB()
}

func TestRecordState_InsertFails(t *testing.T) {
	s, db := corruptDB(t)
	db.Exec("DROP TABLE active_cow_state")
	db.Exec("DROP TABLE cow_versions")

	_, err := s.RecordState(herdCow(t, cow.Config{}), "")
	if err == nil {
		t.Fatal("expected error when cow_versions table is missing")
	}
}

func TestGetVersion_BadMilk(t *testing.T) {
	s, db := corruptDB(t)
	db.Exec(
		`INSERT INTO cow_versions (version_id, cow_id, phase, days_in_milk, lactation_number, days_pregnant,
		 milk_output, age, precision, created_at)
		 VALUES ('bad-milk', 'c', 'Open', 0, 0, 0, 'lots', 0, 10, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
	)

	_, err := s.GetVersion("bad-milk")
	if err == nil {
		t.Fatal("expected parse error for bad milk output")
	}
}

func TestGetVersion_BadPhase(t *testing.T) {
	s, db := corruptDB(t)
	db.Exec(
		`INSERT INTO cow_versions (version_id, cow_id, phase, days_in_milk, lactation_number, days_pregnant,
		 milk_output, age, precision, created_at)
		 VALUES ('bad-phase', 'c', 'Dry', 0, 0, 0, '0', 0, 10, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
	)

	_, err := s.GetVersion("bad-phase")
	if !errors.Is(err, dairy.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestStoreOnClosedDB(t *testing.T) {
	s := tempDB(t)
	c := herdCow(t, cow.Config{})
	v1, _ := s.RecordState(c, "")
	s.Close()

	if _, err := s.RecordState(c, ""); err == nil {
		t.Error("expected RecordState error on closed DB")
	}
	if err := s.Rollback(c.ID().String(), v1.VersionID); err == nil {
		t.Error("expected Rollback error on closed DB")
	}
	if _, err := s.ListVersions(c.ID().String(), 10); err == nil {
		t.Error("expected ListVersions error on closed DB")
	}
	if _, err := s.GetCurrent(c.ID().String()); err == nil {
		t.Error("expected GetCurrent error on closed DB")
	}
}

// #endregion corrupt-db
