package service

import (
	"github.com/go-chi/chi/v5"

	"dlc_store/internal/app"
	"dlc_store/internal/pkg/auth"
	"dlc_store/internal/pkg/logger"
)

// Service encapsulates the HTTP server configuration, including the application's business logic,
// HTTP handlers, the server's run address, and a logger for event and error logging.
type Service struct {
	handlers   *handlers
	app        *app.App
	runAddress string
	log        *logger.Logger
}

// NewService creates and initializes a new Service instance.
func NewService(app *app.App, runAddress string, l *logger.Logger) *Service {
	handlers := newHandlers(app, l)
	return &Service{handlers: handlers, app: app, runAddress: runAddress, log: l}
}

// NewRouter sets up and returns a new chi.Router instance with the necessary middleware and routes.
// Catalog and authentication routes are public; account and order routes require a JWT.
func (service *Service) NewRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(service.log.WithLogging())

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", service.handlers.loginHandler)
		r.Post("/auth/register", service.handlers.registerHandler)

		r.Get("/products", service.handlers.listProductsHandler)
		r.Get("/products/{id}", service.handlers.getProductHandler)
		r.Get("/search", service.handlers.searchHandler)
		r.Get("/categories", service.handlers.categoriesHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.CheckJWTMiddleware())
			r.Get("/me", service.handlers.currentUserHandler)
			r.Post("/orders", service.handlers.createOrderHandler)
			r.Get("/orders", service.handlers.listOrdersHandler)
			r.Get("/orders/{id}", service.handlers.getOrderHandler)
		})
	})
	return router
}
