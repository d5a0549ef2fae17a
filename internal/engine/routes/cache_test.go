package routes

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupCacheDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)

	query := `
	CREATE TABLE route_cache (
		cache_key TEXT PRIMARY KEY,
		target_url TEXT NOT NULL,
		redirect_code INTEGER NOT NULL,
		hire_id TEXT NOT NULL,
		route_id TEXT NOT NULL
	);
	`
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return db
}

func TestSQLCacheStore_PutGetDelete(t *testing.T) {
	db := setupCacheDB(t)
	defer db.Close()

	store := NewSQLCacheStore(db)
	entry := &Entry{TargetURL: "https://shop.example", RedirectCode: 302, HireID: "h1", RouteID: "r1"}

	if err := store.Put("acme.com:/shop", entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get("acme.com", "/shop")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.TargetURL != "https://shop.example" || got.RedirectCode != 302 {
		t.Errorf("Unexpected entry: %+v", got)
	}

	// Put is an idempotent upsert
	entry.RedirectCode = 301
	if err := store.Put("acme.com:/shop", entry); err != nil {
		t.Fatalf("Second put failed: %v", err)
	}
	got, _ = store.Get("acme.com", "/shop")
	if got.RedirectCode != 301 {
		t.Errorf("Expected overwritten code 301, got %d", got.RedirectCode)
	}

	if err := store.Delete("acme.com:/shop"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	// Deleting an absent key is fine
	if err := store.Delete("acme.com:/shop"); err != nil {
		t.Fatalf("Repeat delete failed: %v", err)
	}

	got, _ = store.Get("acme.com", "/shop")
	if got != nil {
		t.Errorf("Expected miss after delete, got %+v", got)
	}
}

func TestSQLCacheStore_RootFallback(t *testing.T) {
	db := setupCacheDB(t)
	defer db.Close()

	store := NewSQLCacheStore(db)
	root := &Entry{TargetURL: "https://landing.example", RedirectCode: 302, HireID: "h1", RouteID: "r-root"}
	shop := &Entry{TargetURL: "https://shop.example", RedirectCode: 301, HireID: "h1", RouteID: "r-shop"}

	if err := store.Put("acme.com:/", root); err != nil {
		t.Fatalf("Put root failed: %v", err)
	}
	if err := store.Put("acme.com:/shop", shop); err != nil {
		t.Fatalf("Put shop failed: %v", err)
	}

	// Exact match wins over the root catch-all
	got, _ := store.Get("acme.com", "/shop")
	if got == nil || got.RouteID != "r-shop" {
		t.Errorf("Expected exact entry r-shop, got %+v", got)
	}

	// Any unmapped path under the host inherits the root entry
	got, _ = store.Get("acme.com", "/anything")
	if got == nil || got.RouteID != "r-root" {
		t.Errorf("Expected root fallback r-root, got %+v", got)
	}

	// Root lookup itself
	got, _ = store.Get("acme.com", "/")
	if got == nil || got.RouteID != "r-root" {
		t.Errorf("Expected root entry, got %+v", got)
	}

	// Different host has no fallback into acme.com
	got, _ = store.Get("other.com", "/anything")
	if got != nil {
		t.Errorf("Expected miss for other host, got %+v", got)
	}
}

func TestSQLCacheStore_NoFallbackWithoutRoot(t *testing.T) {
	db := setupCacheDB(t)
	defer db.Close()

	store := NewSQLCacheStore(db)
	shop := &Entry{TargetURL: "https://shop.example", RedirectCode: 302, HireID: "h1", RouteID: "r-shop"}
	if err := store.Put("acme.com:/shop", shop); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Only one fallback level exists: host root. A miss on a sub-path does
	// not walk up path segments.
	got, _ := store.Get("acme.com", "/shop/item")
	if got != nil {
		t.Errorf("Expected miss without root entry, got %+v", got)
	}
}

func TestSQLCacheStore_DeleteByRoute(t *testing.T) {
	db := setupCacheDB(t)
	defer db.Close()

	store := NewSQLCacheStore(db)
	mine := &Entry{TargetURL: "https://shop.example", RedirectCode: 302, HireID: "h1", RouteID: "r1"}
	other := &Entry{TargetURL: "https://blog.example", RedirectCode: 302, HireID: "h1", RouteID: "r2"}

	if err := store.Put("acme.com:/", mine); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put("blog.acme.com:/", other); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.DeleteByRoute("r1"); err != nil {
		t.Fatalf("DeleteByRoute failed: %v", err)
	}

	if got, _ := store.getByKey("acme.com:/"); got != nil {
		t.Errorf("Expected r1 entry removed, got %+v", got)
	}
	if got, _ := store.getByKey("blog.acme.com:/"); got == nil {
		t.Error("Expected r2 entry untouched")
	}

	// Unknown route id is a no-op
	if err := store.DeleteByRoute("r-missing"); err != nil {
		t.Fatalf("DeleteByRoute for absent route failed: %v", err)
	}
}

func TestSQLCacheStore_NormalizesLookups(t *testing.T) {
	db := setupCacheDB(t)
	defer db.Close()

	store := NewSQLCacheStore(db)
	entry := &Entry{TargetURL: "https://shop.example", RedirectCode: 302, HireID: "h1", RouteID: "r1"}
	if err := store.Put("acme.com:/shop", entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, _ := store.Get("Acme.COM:8080", "/shop/")
	if got == nil || got.RouteID != "r1" {
		t.Errorf("Expected normalized lookup hit, got %+v", got)
	}
}
