package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	httpSwagger "github.com/swaggo/http-swagger"

	"agrohub/models"
)

// routes wires middlewares and endpoints. Adjust CORS for your frontend hosts.
func (a *App) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(a.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000", "https://*.run.app"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=60")
		w.Write(openapiYAML)
	})

	r.Mount("/swagger", httpSwagger.Handler(
		httpSwagger.URL("/api/openapi.yaml"),
	))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", a.handleRegister)
		api.Post("/auth/login", a.handleLogin)

		api.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware)
			pr.Get("/me", a.handleMe)

			pr.Route("/users", func(ur chi.Router) {
				ur.Use(requireRole(models.RoleAdmin))
				ur.Get("/", a.handleListUsers)
				ur.Put("/{id}/status", a.handleSetUserStatus)
			})

			pr.Route("/products", func(pdr chi.Router) {
				pdr.Get("/", a.handleListProducts)
				pdr.Get("/{id}", a.handleGetProduct)

				pdr.Group(func(mr chi.Router) {
					mr.Use(requireRole(models.RoleShopManager, models.RoleAdmin))
					mr.Post("/", a.handleCreateProduct)
					mr.Put("/{id}", a.handleUpdateProduct)
					mr.Delete("/{id}", a.handleDeleteProduct)
				})
			})

			pr.Route("/orders", func(or chi.Router) {
				or.Post("/", a.handleCreateOrder)
				or.Get("/", a.handleListOrders)
				or.Get("/{id}", a.handleGetOrder)
				or.Put("/{id}/status", a.handleUpdateOrderStatus)
			})

			pr.Route("/service-requests", func(sr chi.Router) {
				sr.Post("/", a.handleCreateRequest)
				sr.Post("/harvest", a.handleCreateHarvestRequest)
				sr.Get("/", a.handleListRequests)
				sr.Get("/{id}", a.handleGetRequest)
				sr.Put("/{id}", a.handleUpdateRequest)
				sr.Delete("/{id}", a.handleDeleteRequest)
				sr.Put("/{id}/approve", a.handleApproveRequest)
				sr.Put("/{id}/reject", a.handleRejectRequest)
				sr.Put("/{id}/assign", a.handleAssignRequest)
				sr.Put("/{id}/start", a.handleStartRequest)
				sr.Put("/{id}/complete", a.handleCompleteRequest)
				sr.Put("/{id}/cancel", a.handleCancelRequest)
				sr.Put("/{id}/status", a.handleUpdateRequestStatus)
				sr.Post("/{id}/feedback", a.handleSubmitFeedback)
			})

			pr.Route("/notifications", func(nr chi.Router) {
				nr.Get("/me", a.handleMyNotifications)
				nr.Put("/{id}/read", a.handleMarkNotificationRead)
			})
		})
	})

	return r
}
