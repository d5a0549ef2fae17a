package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "hirelink/internal/api/context"
	"hirelink/internal/api/handlers"
	"hirelink/internal/api/middleware"
	"hirelink/internal/pkg/errors"
)

type Dependencies struct {
	RedirectHandler *handlers.RedirectHandler
	DedupHandler    *handlers.DedupHandler
	SyncHandler     *handlers.SyncHandler
	HealthHandler   *handlers.HealthHandler
	RateLimiter     *middleware.RateLimiter
}

// NewRouter wires the narrow API surface and sends everything else through
// the redirect handler. Redirects live behind NotFound so a hired domain can
// point any method at any path and still resolve.
func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Check))

	router.POST("/api/v1/dedup/:route_id/check", wrap(deps.DedupHandler.Check))

	// Coordinator surface, invoked fire-and-forget by the CRUD backend
	// after a committed route mutation.
	router.POST("/api/v1/sync/routes/:route_id", wrap(deps.SyncHandler.SyncRoute))
	router.POST("/api/v1/sync/hires/:hire_id", wrap(deps.SyncHandler.SyncHire))
	router.POST("/api/v1/invalidate", wrap(deps.SyncHandler.Invalidate))

	router.HandleMethodNotAllowed = true
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusMethodNotAllowed, errors.ErrCodeMethodNotAllowed,
			"Method not allowed", nil)
	})

	router.NotFound = deps.RateLimiter.Wrap(deps.RedirectHandler)

	return router
}

// Convert http.HandlerFunc to httprouter.Handle, injecting params into the
// request context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
