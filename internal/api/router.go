package api

import (
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/go-chi/chi/v5"

	"github.com/crowdpetition/crowdpetition/internal/api/handler"
	"github.com/crowdpetition/crowdpetition/internal/api/middleware"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Petitions   handler.PetitionService
	Users       handler.UserService
	Resolver    middleware.CallerResolver
	DBPinger    handler.Pinger
	RedisPinger handler.Pinger
	Version     string
	OpenAPISpec []byte
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.RedisPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if deps.Resolver != nil {
			r.Use(middleware.Authenticate(deps.Resolver))
		}

		if deps.Petitions != nil {
			petitionHandler := handler.NewPetitionHandler(deps.Petitions)
			tierHandler := handler.NewSupportTierHandler(deps.Petitions)
			supporterHandler := handler.NewSupporterHandler(deps.Petitions)

			r.Route("/petitions", func(r chi.Router) {
				r.Get("/", petitionHandler.List)
				r.Get("/categories", petitionHandler.Categories)
				r.Get("/{id}", petitionHandler.Get)
				r.Get("/{id}/supporters", supporterHandler.List)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAuth)
					r.Post("/", petitionHandler.Create)
					r.Patch("/{id}", petitionHandler.Update)
					r.Delete("/{id}", petitionHandler.Delete)
					r.Post("/{id}/supportTiers", tierHandler.Create)
					r.Patch("/{id}/supportTiers/{tierId}", tierHandler.Update)
					r.Delete("/{id}/supportTiers/{tierId}", tierHandler.Delete)
					r.Post("/{id}/supporters", supporterHandler.Create)
				})
			})
		}

		if deps.Users != nil {
			userHandler := handler.NewUserHandler(deps.Users)
			r.Route("/users", func(r chi.Router) {
				r.Post("/register", userHandler.Register)
				r.Post("/login", userHandler.Login)
				r.Get("/{id}", userHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAuth)
					r.Post("/logout", userHandler.Logout)
					r.Patch("/{id}", userHandler.Update)
				})
			})
		}
	})

	return r
}
