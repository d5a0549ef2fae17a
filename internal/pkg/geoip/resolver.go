package geoip

// Resolver supplies the request signals attached to click events. Lookups
// must be cheap and local; the redirect path calls them on every hit.
type Resolver interface {
	Country(ip string) (string, error)
	ASN(ip string) (string, error)
}

// StaticResolver is a placeholder for deployments without a MaxMind database.
type StaticResolver struct{}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{}
}

func (r *StaticResolver) Country(ip string) (string, error) {
	return "US", nil
}

func (r *StaticResolver) ASN(ip string) (string, error) {
	return "AS0", nil
}
