package handlers

import (
	"net"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"hirelink/internal/engine/analytics"
	"hirelink/internal/engine/routes"
	"hirelink/internal/pkg/errors"
	"hirelink/internal/pkg/geoip"
	"hirelink/internal/pkg/parser"
)

// DedupChecker is the slice of the dedup store the redirect path needs.
type DedupChecker interface {
	Check(routeID, ip, userAgent string) (bool, error)
}

// RedirectHandler is the latency-critical request path: cache lookup,
// redirect, and fire-and-forget click accounting. It holds no per-request
// state; the redirect is issued before any dedup or analytics work runs and
// never waits on either.
type RedirectHandler struct {
	Cache       routes.CacheStore
	Dedup       DedupChecker
	Sink        analytics.Sink
	GeoResolver geoip.Resolver
}

func NewRedirectHandler(cache routes.CacheStore, dedup DedupChecker, sink analytics.Sink, geo geoip.Resolver) *RedirectHandler {
	return &RedirectHandler{
		Cache:       cache,
		Dedup:       dedup,
		Sink:        sink,
		GeoResolver: geo,
	}
}

func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := routes.NormalizeHost(r.Host)
	path := routes.NormalizePath(r.URL.Path)

	entry, err := h.Cache.Get(host, path)
	if err != nil {
		log.Error().Err(err).Str("host", host).Str("path", path).
			Msg("route cache lookup failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal,
			"Route lookup unavailable", nil)
		return
	}
	if entry == nil {
		errors.WriteRouteNotFound(w)
		return
	}

	location := mergeQuery(entry.TargetURL, r.URL.Query())

	// Capture request facts by value before responding; the request object
	// is not safe to touch from the background goroutine.
	ip := clientIP(r)
	ua := r.UserAgent()
	referrer := r.Referer()

	http.Redirect(w, r, location, entry.RedirectCode)

	go h.accountClick(*entry, host, path, ip, ua, referrer)
}

// accountClick runs the non-critical tail of a redirect: dedup check and
// one click event. A dedup failure counts the click as fresh; an emit
// failure is the sink's problem. Neither can reach the requester.
func (h *RedirectHandler) accountClick(entry routes.Entry, host, path, ip, ua, referrer string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("route_id", entry.RouteID).
				Msg("recovered from panic in click accounting")
		}
	}()

	duplicate, err := h.Dedup.Check(entry.RouteID, ip, ua)
	if err != nil {
		log.Error().Err(err).Str("route_id", entry.RouteID).Str("action", "dedup_check").
			Msg("dedup check failed, counting click as fresh")
		duplicate = false
	}

	bucket := parser.ClassifyBot(ua)

	country, err := h.GeoResolver.Country(ip)
	if err != nil {
		country = ""
	}
	asn, err := h.GeoResolver.ASN(ip)
	if err != nil {
		asn = ""
	}

	h.Sink.Record(analytics.ClickEvent{
		Host:      host,
		Path:      path,
		RouteID:   entry.RouteID,
		HireID:    entry.HireID,
		Country:   country,
		ASN:       asn,
		BotBucket: bucket,
		Referrer:  referrer,
		IsInvalid: parser.IsInvalidBucket(bucket) || duplicate,
	})
}

// mergeQuery appends the inbound query string onto the target URL,
// preserving any parameters the target already carries.
func mergeQuery(target string, inbound url.Values) string {
	if len(inbound) == 0 {
		return target
	}

	u, err := url.Parse(target)
	if err != nil {
		return target
	}

	q := u.Query()
	for key, values := range inbound {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
