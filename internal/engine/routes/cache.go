package routes

import (
	"database/sql"
)

// Entry is a resolved route as served on the redirect hot path. Entries are
// derived from the relational route table by the coordinator, never
// hand-authored.
type Entry struct {
	TargetURL    string
	RedirectCode int
	HireID       string
	RouteID      string
}

// CacheStore is the per-key redirect lookup consulted on every inbound
// request. The coordinator is its only writer.
type CacheStore interface {
	Get(host, path string) (*Entry, error)
	Put(key string, entry *Entry) error
	Delete(key string) error
	DeleteByRoute(routeID string) error
}

// SQLCacheStore backs the cache with the edge database's route_cache table.
type SQLCacheStore struct {
	db *sql.DB
}

func NewSQLCacheStore(db *sql.DB) *SQLCacheStore {
	return &SQLCacheStore{db: db}
}

// Get looks up the exact key first and falls back to the host's root key.
// The root entry is a per-host catch-all: any path with no more specific
// entry inherits it. No other fallback levels exist.
func (s *SQLCacheStore) Get(host, path string) (*Entry, error) {
	h := NormalizeHost(host)
	p := NormalizePath(path)

	entry, err := s.getByKey(h + ":" + p)
	if err != nil {
		return nil, err
	}
	if entry != nil || p == "/" {
		return entry, nil
	}

	return s.getByKey(h + ":/")
}

func (s *SQLCacheStore) getByKey(key string) (*Entry, error) {
	query := `
		SELECT target_url, redirect_code, hire_id, route_id
		FROM route_cache WHERE cache_key = ?
	`
	var entry Entry
	err := s.db.QueryRow(query, key).Scan(
		&entry.TargetURL,
		&entry.RedirectCode,
		&entry.HireID,
		&entry.RouteID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (s *SQLCacheStore) Put(key string, entry *Entry) error {
	query := `
		INSERT INTO route_cache (cache_key, target_url, redirect_code, hire_id, route_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			target_url = excluded.target_url,
			redirect_code = excluded.redirect_code,
			hire_id = excluded.hire_id,
			route_id = excluded.route_id
	`
	_, err := s.db.Exec(query, key, entry.TargetURL, entry.RedirectCode, entry.HireID, entry.RouteID)
	return err
}

func (s *SQLCacheStore) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM route_cache WHERE cache_key = ?", key)
	return err
}

// DeleteByRoute removes every entry a route published, whatever key it
// lives under. This is the teardown path when the key itself can no longer
// be recomputed, e.g. the owning domain is gone.
func (s *SQLCacheStore) DeleteByRoute(routeID string) error {
	_, err := s.db.Exec("DELETE FROM route_cache WHERE route_id = ?", routeID)
	return err
}

// Ref names the relational rows behind a cached entry.
type Ref struct {
	RouteID string
	HireID  string
}

// ListRefs returns the route and hire behind every cached entry, keyed by
// cache key. The reconcile worker uses it to find orphans.
func (s *SQLCacheStore) ListRefs() (map[string]Ref, error) {
	rows, err := s.db.Query("SELECT cache_key, route_id, hire_id FROM route_cache")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Ref)
	for rows.Next() {
		var key string
		var ref Ref
		if err := rows.Scan(&key, &ref.RouteID, &ref.HireID); err != nil {
			return nil, err
		}
		out[key] = ref
	}
	return out, rows.Err()
}
