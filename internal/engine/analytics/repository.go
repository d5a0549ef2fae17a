package analytics

import "database/sql"

// Repository exposes the read side of click_events used by operational
// tooling; the redirect path only ever writes through the Sink.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CountByRoute returns total and invalid click counts for a route since a
// unix-ms timestamp.
func (r *Repository) CountByRoute(routeID string, sinceMs int64) (total, invalid int64, err error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_invalid THEN 1 ELSE 0 END), 0)
		FROM click_events
		WHERE route_id = ? AND timestamp >= ?
	`
	err = r.db.QueryRow(query, routeID, sinceMs).Scan(&total, &invalid)
	return total, invalid, err
}
