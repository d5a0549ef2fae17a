package dedup

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupStore(t *testing.T) (*Store, *sql.DB) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)

	query := `
	CREATE TABLE dedup_records (
		dedup_key TEXT PRIMARY KEY,
		expires_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	store := NewStore(db, Window)
	t.Cleanup(store.Stop)
	return store, db
}

func countRecords(t *testing.T, db *sql.DB) int {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM dedup_records").Scan(&n); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	return n
}

func TestStore_WindowSemantics(t *testing.T) {
	store, db := setupStore(t)
	defer db.Close()

	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	dup, err := store.Check("r1", "203.0.113.7", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("First check failed: %v", err)
	}
	if dup {
		t.Error("First check should be fresh")
	}

	// Second hit inside the window is a duplicate
	now = now.Add(29 * time.Minute)
	dup, err = store.Check("r1", "203.0.113.7", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("Second check failed: %v", err)
	}
	if !dup {
		t.Error("Second check inside window should be duplicate")
	}

	// Past the window the same requester counts fresh again. The boundary
	// is strict: expiry at exactly now means expired.
	now = now.Add(1 * time.Minute)
	dup, err = store.Check("r1", "203.0.113.7", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("Third check failed: %v", err)
	}
	if dup {
		t.Error("Check at window boundary should be fresh")
	}
}

func TestStore_KeysAreScopedByRouteAndFingerprint(t *testing.T) {
	store, db := setupStore(t)
	defer db.Close()

	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	if dup, _ := store.Check("r1", "203.0.113.7", "Mozilla/5.0"); dup {
		t.Error("First check should be fresh")
	}
	// Same requester, different route
	if dup, _ := store.Check("r2", "203.0.113.7", "Mozilla/5.0"); dup {
		t.Error("Different route should be fresh")
	}
	// Same route, different requester
	if dup, _ := store.Check("r1", "203.0.113.8", "Mozilla/5.0"); dup {
		t.Error("Different ip should be fresh")
	}
	// Fingerprint is case- and whitespace-insensitive
	if dup, _ := store.Check("r1", " 203.0.113.7 ", "MOZILLA/5.0"); !dup {
		t.Error("Normalized fingerprint should match the armed record")
	}
}

func TestStore_RejectsBlankInputWithoutMutation(t *testing.T) {
	store, db := setupStore(t)
	defer db.Close()

	cases := []struct {
		name string
		ip   string
		ua   string
	}{
		{"Empty IP", "", "Mozilla/5.0"},
		{"Whitespace IP", "   ", "Mozilla/5.0"},
		{"Empty UA", "203.0.113.7", ""},
		{"Whitespace UA", "203.0.113.7", "  "},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Check("r1", tt.ip, tt.ua)
			if err != ErrInvalidInput {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if n := countRecords(t, db); n != 0 {
		t.Errorf("Expected no records after rejected checks, got %d", n)
	}
	if store.SweepPending() {
		t.Error("Rejected checks must not arm the sweep")
	}
}

func TestStore_SweepLifecycle(t *testing.T) {
	store, db := setupStore(t)
	defer db.Close()

	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	if store.SweepPending() {
		t.Error("Empty store must not have a sweep scheduled")
	}

	if _, err := store.Check("r1", "203.0.113.7", "Mozilla/5.0"); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !store.SweepPending() {
		t.Error("Fresh check must arm the sweep")
	}

	now = now.Add(10 * time.Minute)
	if _, err := store.Check("r2", "203.0.113.8", "Mozilla/5.0"); err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	// First record expired, second still armed: sweep deletes one and
	// stays scheduled.
	now = now.Add(25 * time.Minute)
	store.Sweep()
	if n := countRecords(t, db); n != 1 {
		t.Errorf("Expected 1 record after partial sweep, got %d", n)
	}
	if !store.SweepPending() {
		t.Error("Sweep must reschedule while records remain")
	}

	// Everything expired: the sweep empties the table and lets the timer
	// lapse.
	now = now.Add(time.Hour)
	store.Sweep()
	if n := countRecords(t, db); n != 0 {
		t.Errorf("Expected empty table after final sweep, got %d records", n)
	}
	if store.SweepPending() {
		t.Error("No sweep may stay scheduled once the store is empty")
	}
}

// A fresh check racing a sweep must never end with a live record and no
// armed timer: whichever side runs last under the lock sees the record and
// keeps the sweep scheduled.
func TestStore_SweepRacingCheckKeepsTimerArmed(t *testing.T) {
	for i := 0; i < 50; i++ {
		store, db := setupStore(t)

		now := time.Unix(1_700_000_000, 0)
		store.now = func() time.Time { return now }

		done := make(chan struct{})
		go func() {
			defer close(done)
			if _, err := store.Check("r1", "203.0.113.7", "Mozilla/5.0"); err != nil {
				t.Errorf("Check failed: %v", err)
			}
		}()
		store.Sweep()
		<-done

		if countRecords(t, db) > 0 && !store.SweepPending() {
			t.Fatal("Record stranded with no sweep scheduled")
		}

		store.Stop()
		db.Close()
	}
}

func TestStore_DuplicateDoesNotRefreshWindow(t *testing.T) {
	store, db := setupStore(t)
	defer db.Close()

	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	if _, err := store.Check("r1", "203.0.113.7", "Mozilla/5.0"); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	var armedAt int64
	if err := db.QueryRow("SELECT expires_at FROM dedup_records").Scan(&armedAt); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	now = now.Add(15 * time.Minute)
	if dup, _ := store.Check("r1", "203.0.113.7", "Mozilla/5.0"); !dup {
		t.Fatal("Expected duplicate")
	}

	var after int64
	if err := db.QueryRow("SELECT expires_at FROM dedup_records").Scan(&after); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if after != armedAt {
		t.Errorf("Duplicate check must not move expiry: %d != %d", after, armedAt)
	}
}

func TestFingerprint(t *testing.T) {
	if got := Fingerprint(" 203.0.113.7 ", " Mozilla/5.0 "); got != "203.0.113.7::mozilla/5.0" {
		t.Errorf("Unexpected fingerprint: %s", got)
	}
}
