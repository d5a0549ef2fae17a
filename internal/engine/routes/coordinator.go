package routes

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"hirelink/internal/platform/models"
	"hirelink/internal/platform/repositories"
)

// Coordinator is the single writer of the route cache. It recomputes and
// publishes cache entries when the relational route table changes, and
// invalidates stale keys on delete or host/path rename. It runs out of band
// from the redirect path: callers fire it after a committed mutation and
// never wait on it, so a failed sync leaves the cache briefly stale instead
// of failing the mutation.
type Coordinator struct {
	repo  *repositories.RouteRepository
	cache CacheStore
	meta  MetaStore
}

func NewCoordinator(repo *repositories.RouteRepository, cache CacheStore, meta MetaStore) *Coordinator {
	return &Coordinator{
		repo:  repo,
		cache: cache,
		meta:  meta,
	}
}

// SyncRoute recomputes the cache entry for one route. prev is the route's
// shape before the triggering mutation; callers that don't know it pass
// nil and the coordinator falls back to the persisted meta record.
func (c *Coordinator) SyncRoute(routeID string, prev *models.RouteShape) error {
	rwb, err := c.repo.GetRouteWithBase(routeID)
	if err != nil {
		log.Error().Err(err).Str("route_id", routeID).Str("action", "sync").
			Msg("route load failed")
		return err
	}

	// Route gone: the only remaining work is tearing down whatever key the
	// route last published.
	if rwb == nil {
		if prev == nil {
			prev, err = c.meta.Get(routeID)
			if err != nil {
				log.Error().Err(err).Str("route_id", routeID).Str("action", "sync").
					Msg("meta load failed")
				return err
			}
		}
		if prev != nil {
			if err := c.invalidateShape(prev); err != nil {
				return err
			}
		}
		return c.deleteMeta(routeID)
	}

	route := rwb.Route

	// Host/path rename: drop the old key before publishing the new one so
	// the window where both resolve is as small as we can make it.
	if prev != nil && (NormalizeHost(prev.Host) != NormalizeHost(route.Host) ||
		NormalizePath(prev.Path) != NormalizePath(route.Path)) {
		if err := c.invalidateShape(prev); err != nil {
			return err
		}
	}

	return c.publish(rwb)
}

// SyncAllRoutes re-resolves every route of a hire, concurrently. Each
// route's cache key is independent so there is nothing to order between
// them.
func (c *Coordinator) SyncAllRoutes(hireID string) error {
	rwbs, err := c.repo.ListRoutesByHire(hireID)
	if err != nil {
		log.Error().Err(err).Str("hire_id", hireID).Str("action", "sync_all").
			Msg("route list failed")
		return err
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(rwbs))
	for _, rwb := range rwbs {
		wg.Add(1)
		go func(rwb *repositories.RouteWithBase) {
			defer wg.Done()
			if err := c.publish(rwb); err != nil {
				errs <- err
			}
		}(rwb)
	}
	wg.Wait()
	close(errs)

	var failed int
	for range errs {
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("sync all routes for hire %s: %d of %d failed", hireID, failed, len(rwbs))
	}
	return nil
}

// InvalidateRoute removes the cache entry for one (host, path) under a
// hire, and the route's meta record when the caller knows its id.
func (c *Coordinator) InvalidateRoute(host, path, hireID, routeID string) error {
	if err := c.invalidateShape(&models.RouteShape{Host: host, Path: path, HireID: hireID}); err != nil {
		return err
	}
	if routeID != "" {
		return c.deleteMeta(routeID)
	}
	return nil
}

// publish writes the cache entry and meta record for a loaded route, or
// tears the route down when its base domain no longer resolves. An
// unresolvable base is a silent degrade, not an error: the redirect path
// will 404 as if the route never existed.
func (c *Coordinator) publish(rwb *repositories.RouteWithBase) error {
	route := rwb.Route

	// Unresolvable base: the route's old key cannot be recomputed, but any
	// entry it published still carries its id, so tear down by route id
	// before dropping the meta record. The redirect path 404s from here on.
	if rwb.BaseFQDN == "" {
		log.Warn().Str("route_id", route.ID).Str("hire_id", route.HireID).
			Str("action", "sync").Msg("route does not resolve to a base domain, evicting cache entries")
		if err := c.cache.DeleteByRoute(route.ID); err != nil {
			log.Error().Err(err).Str("route_id", route.ID).Str("action", "sync").
				Msg("cache eviction failed")
			return err
		}
		return c.deleteMeta(route.ID)
	}

	code := route.RedirectCode
	switch code {
	case 301, 302, 307, 308:
	default:
		code = 302
	}

	key := CacheKey(QualifyHost(route.Host, rwb.BaseFQDN), route.Path)
	entry := &Entry{
		TargetURL:    route.TargetURL,
		RedirectCode: code,
		HireID:       route.HireID,
		RouteID:      route.ID,
	}

	if err := c.cache.Put(key, entry); err != nil {
		log.Error().Err(err).Str("route_id", route.ID).Str("cache_key", key).
			Str("action", "sync").Msg("cache write failed")
		return err
	}

	shape := &models.RouteShape{Host: route.Host, Path: route.Path, HireID: route.HireID}
	if err := c.meta.Put(route.ID, shape); err != nil {
		log.Error().Err(err).Str("route_id", route.ID).Str("action", "sync").
			Msg("meta write failed")
		return err
	}
	return nil
}

// invalidateShape deletes the cache key a shape resolves to. When the base
// domain can no longer be resolved the key cannot be recomputed; the entry
// (if any) is left for the reconciler to purge.
func (c *Coordinator) invalidateShape(shape *models.RouteShape) error {
	base, err := c.repo.ResolveBaseDomain(shape.HireID)
	if err != nil {
		log.Error().Err(err).Str("hire_id", shape.HireID).Str("action", "invalidate").
			Msg("base domain resolution failed")
		return err
	}
	if base == "" {
		log.Warn().Str("hire_id", shape.HireID).Str("action", "invalidate").
			Msg("no base domain for hire, cannot compute stale key")
		return nil
	}

	key := CacheKey(QualifyHost(shape.Host, base), shape.Path)
	if err := c.cache.Delete(key); err != nil {
		log.Error().Err(err).Str("cache_key", key).Str("action", "invalidate").
			Msg("cache delete failed")
		return err
	}
	return nil
}

func (c *Coordinator) deleteMeta(routeID string) error {
	if err := c.meta.Delete(routeID); err != nil {
		log.Error().Err(err).Str("route_id", routeID).Str("action", "sync").
			Msg("meta delete failed")
		return err
	}
	return nil
}
