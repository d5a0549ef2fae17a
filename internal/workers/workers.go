package workers

import (
	"github.com/rs/zerolog/log"
	"hirelink/internal/engine/dedup"
	"hirelink/internal/engine/routes"
	"hirelink/internal/platform/repositories"
)

// Reconciler is the safety net behind the event-driven coordinator: it
// periodically re-derives the whole route cache from the relational store
// and purges entries whose route no longer exists, repairing any sync call
// that was lost. It also runs a dedup expiry pass in case a store's timer
// was dropped across a restart.
type Reconciler struct {
	repo        *repositories.RouteRepository
	coordinator *routes.Coordinator
	cache       *routes.SQLCacheStore
	dedup       *dedup.Store
}

func NewReconciler(repo *repositories.RouteRepository, coordinator *routes.Coordinator, cache *routes.SQLCacheStore, dedupStore *dedup.Store) *Reconciler {
	return &Reconciler{
		repo:        repo,
		coordinator: coordinator,
		cache:       cache,
		dedup:       dedupStore,
	}
}

// Run executes one full reconcile pass. Failures are logged per hire and
// never abort the rest of the pass.
func (r *Reconciler) Run() {
	r.resyncAll()
	r.purgeOrphans()
	r.dedup.Sweep()
}

func (r *Reconciler) resyncAll() {
	hireIDs, err := r.repo.ListHireIDs()
	if err != nil {
		log.Error().Err(err).Str("action", "reconcile").Msg("hire listing failed")
		return
	}

	for _, hireID := range hireIDs {
		if err := r.coordinator.SyncAllRoutes(hireID); err != nil {
			log.Error().Err(err).Str("hire_id", hireID).Str("action", "reconcile").
				Msg("hire re-sync failed")
		}
	}

	log.Info().Int("hires", len(hireIDs)).Str("action", "reconcile").
		Msg("route re-sync pass complete")
}

// purgeOrphans drops cache entries pointing at routes that no longer exist
// or whose hire no longer resolves a base domain. These appear when a
// delete's invalidate call never arrived, or when the domain chain broke
// and the stale key could not be recomputed.
func (r *Reconciler) purgeOrphans() {
	cached, err := r.cache.ListRefs()
	if err != nil {
		log.Error().Err(err).Str("action", "reconcile").Msg("cache listing failed")
		return
	}

	bases := make(map[string]string)
	var purged int
	for key, ref := range cached {
		exists, err := r.repo.RouteExists(ref.RouteID)
		if err != nil {
			log.Error().Err(err).Str("route_id", ref.RouteID).Str("action", "reconcile").
				Msg("route existence check failed")
			continue
		}

		orphaned := !exists
		if exists {
			base, ok := bases[ref.HireID]
			if !ok {
				base, err = r.repo.ResolveBaseDomain(ref.HireID)
				if err != nil {
					log.Error().Err(err).Str("hire_id", ref.HireID).Str("action", "reconcile").
						Msg("base domain resolution failed")
					continue
				}
				bases[ref.HireID] = base
			}
			orphaned = base == ""
		}

		if orphaned {
			if err := r.cache.Delete(key); err != nil {
				log.Error().Err(err).Str("cache_key", key).Str("action", "reconcile").
					Msg("orphan purge failed")
				continue
			}
			purged++
		}
	}

	if purged > 0 {
		log.Info().Int("purged", purged).Str("action", "reconcile").
			Msg("orphaned cache entries removed")
	}
}
