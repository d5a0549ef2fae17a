package repositories

import (
	"database/sql"

	"hirelink/internal/platform/models"
)

// RouteRepository reads route records from the relational store, joined
// through hire -> listing -> domain to obtain the base FQDN the route's
// host token is relative to.
type RouteRepository struct {
	db *sql.DB
}

func NewRouteRepository(db *sql.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// RouteWithBase is a route plus the fully-qualified base domain it resolves
// under. BaseFQDN is empty when the owning domain record is gone, which the
// coordinator treats as "route cannot resolve".
type RouteWithBase struct {
	Route    models.Route
	BaseFQDN string
}

// GetRouteWithBase loads a route and its base domain. Returns (nil, nil)
// when the route no longer exists.
func (r *RouteRepository) GetRouteWithBase(routeID string) (*RouteWithBase, error) {
	query := `
		SELECT rt.id, rt.hire_id, rt.host, rt.path, rt.target_url, rt.redirect_code,
		       COALESCE(d.fqdn, '')
		FROM routes rt
		LEFT JOIN hires h ON h.id = rt.hire_id
		LEFT JOIN listings l ON l.id = h.listing_id
		LEFT JOIN domains d ON d.id = l.domain_id
		WHERE rt.id = ?
	`
	var rwb RouteWithBase
	err := r.db.QueryRow(query, routeID).Scan(
		&rwb.Route.ID,
		&rwb.Route.HireID,
		&rwb.Route.Host,
		&rwb.Route.Path,
		&rwb.Route.TargetURL,
		&rwb.Route.RedirectCode,
		&rwb.BaseFQDN,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rwb, nil
}

// ListRoutesByHire loads every route belonging to a hire along with the
// hire's base domain, for bulk re-sync.
func (r *RouteRepository) ListRoutesByHire(hireID string) ([]*RouteWithBase, error) {
	query := `
		SELECT rt.id, rt.hire_id, rt.host, rt.path, rt.target_url, rt.redirect_code,
		       COALESCE(d.fqdn, '')
		FROM routes rt
		LEFT JOIN hires h ON h.id = rt.hire_id
		LEFT JOIN listings l ON l.id = h.listing_id
		LEFT JOIN domains d ON d.id = l.domain_id
		WHERE rt.hire_id = ?
	`
	rows, err := r.db.Query(query, hireID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []*RouteWithBase
	for rows.Next() {
		var rwb RouteWithBase
		err := rows.Scan(
			&rwb.Route.ID,
			&rwb.Route.HireID,
			&rwb.Route.Host,
			&rwb.Route.Path,
			&rwb.Route.TargetURL,
			&rwb.Route.RedirectCode,
			&rwb.BaseFQDN,
		)
		if err != nil {
			return nil, err
		}
		routes = append(routes, &rwb)
	}
	return routes, rows.Err()
}

// ResolveBaseDomain walks hire -> listing -> domain and returns the FQDN.
// A broken chain resolves to "" without error; the caller decides what a
// missing base means.
func (r *RouteRepository) ResolveBaseDomain(hireID string) (string, error) {
	query := `
		SELECT d.fqdn
		FROM hires h
		JOIN listings l ON l.id = h.listing_id
		JOIN domains d ON d.id = l.domain_id
		WHERE h.id = ?
	`
	var fqdn string
	err := r.db.QueryRow(query, hireID).Scan(&fqdn)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return fqdn, nil
}

// ListHireIDs returns the distinct hires that currently own routes. The
// reconcile worker fans a full re-sync out over this set.
func (r *RouteRepository) ListHireIDs() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT hire_id FROM routes")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RouteExists reports whether a route id is still present in the relational
// store. Used by the reconciler to purge orphaned cache entries.
func (r *RouteRepository) RouteExists(routeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM routes WHERE id = ?)", routeID).Scan(&exists)
	return exists, err
}
