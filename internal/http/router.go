package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"kbase/internal/handlers"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Assistants     handlers.AssistantService
	Documents      handlers.DocumentService
	Ask            handlers.AskService
	Health         http.Handler
	MaxUploadBytes int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	assistantHandler := handlers.NewAssistantHandler(deps.Assistants)
	documentHandler := handlers.NewDocumentHandler(deps.Documents, deps.MaxUploadBytes)
	askHandler := handlers.NewAskHandler(deps.Ask)

	r.Route("/api", func(r chi.Router) {
		if deps.Health != nil {
			r.Method(http.MethodGet, "/health", deps.Health)
		}

		r.Route("/assistants", func(r chi.Router) {
			r.Post("/", assistantHandler.Create)
			r.Route("/{assistantID}", func(r chi.Router) {
				r.Get("/", assistantHandler.Get)
				r.Put("/", assistantHandler.Update)
				r.Delete("/", assistantHandler.Delete)
				r.Get("/documents", assistantHandler.Documents)
				r.Post("/documents", documentHandler.Upload)
				r.Get("/messages", assistantHandler.Messages)
				r.Get("/stats", assistantHandler.Stats)
				r.Post("/retrain", documentHandler.Retrain)
				r.Post("/ask", askHandler.Ask)
			})
		})

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Get("/", documentHandler.Get)
			r.Delete("/", documentHandler.Delete)
		})
	})

	return r
}
