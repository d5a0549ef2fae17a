package routes

import (
	"database/sql"

	"hirelink/internal/platform/models"
)

// MetaStore persists each route's last-synced (host, path, hireId) shape.
// When a route is deleted or renamed and the caller cannot supply the old
// shape, the coordinator reads it back from here to invalidate the correct
// stale cache key.
type MetaStore interface {
	Get(routeID string) (*models.RouteShape, error)
	Put(routeID string, shape *models.RouteShape) error
	Delete(routeID string) error
}

type SQLMetaStore struct {
	db *sql.DB
}

func NewSQLMetaStore(db *sql.DB) *SQLMetaStore {
	return &SQLMetaStore{db: db}
}

func (s *SQLMetaStore) Get(routeID string) (*models.RouteShape, error) {
	var shape models.RouteShape
	err := s.db.QueryRow(
		"SELECT host, path, hire_id FROM route_meta WHERE route_id = ?", routeID,
	).Scan(&shape.Host, &shape.Path, &shape.HireID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &shape, nil
}

func (s *SQLMetaStore) Put(routeID string, shape *models.RouteShape) error {
	query := `
		INSERT INTO route_meta (route_id, host, path, hire_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(route_id) DO UPDATE SET
			host = excluded.host,
			path = excluded.path,
			hire_id = excluded.hire_id
	`
	_, err := s.db.Exec(query, routeID, shape.Host, shape.Path, shape.HireID)
	return err
}

func (s *SQLMetaStore) Delete(routeID string) error {
	_, err := s.db.Exec("DELETE FROM route_meta WHERE route_id = ?", routeID)
	return err
}
