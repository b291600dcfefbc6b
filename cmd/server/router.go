package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/pulseweave/internal/api"
	apiMiddleware "github.com/phrazzld/pulseweave/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(apiMiddleware.RequestLogger)

	taskHandler := api.NewTaskHandler(app.registry, app.logger)
	asrHandler := api.NewASRHandler(app.watcher)
	systemHandler := api.NewSystemHandler(app.aggregator, app.provider.Name())

	r.Get("/health", systemHandler.Health)
	r.Get("/ws/stats", systemHandler.Stats)
	r.Method(http.MethodGet, "/ws", app.realtime)

	r.Route("/api", func(r chi.Router) {
		if app.authenticator != nil {
			r.Use(apiMiddleware.NewAuthMiddleware(app.authenticator).Authenticate)
		}

		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks", taskHandler.ListTasks)
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Delete("/tasks/{id}", taskHandler.CancelTask)

		r.Post("/asr/start", asrHandler.Start)
		r.Post("/asr/stop", asrHandler.Stop)
		r.Get("/asr/stats", asrHandler.Stats)
		r.Get("/asr/recent", asrHandler.Recent)
	})

	return r
}
