package models

// Route maps a (host, path) under a hired domain to a redirect target. The
// host column holds a relative token: "apex", "www", or a bare subdomain
// label; the owning domain's FQDN is resolved through the hire chain.
type Route struct {
	ID           string `json:"id"`
	HireID       string `json:"hire_id"`
	Host         string `json:"host"`
	Path         string `json:"path"`
	TargetURL    string `json:"target_url"`
	RedirectCode int    `json:"redirect_code"` // 301, 302, 307 or 308
}

// RouteShape is the denormalized (host, path, hireId) triple of a route as
// it was last synced. The coordinator persists one per route so that
// deletions and renames can invalidate the correct stale cache key without
// the caller supplying the old values.
type RouteShape struct {
	Host   string `json:"host"`
	Path   string `json:"path"`
	HireID string `json:"hireId"`
}

type Hire struct {
	ID        string `json:"id"`
	ListingID string `json:"listing_id"`
	Status    string `json:"status"`
}

type Listing struct {
	ID       string `json:"id"`
	DomainID string `json:"domain_id"`
}

type Domain struct {
	ID   string `json:"id"`
	FQDN string `json:"fqdn"`
}
