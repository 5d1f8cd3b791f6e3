package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	custommiddleware "github.com/mmeshcher/shelterlink-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса шелтерлинк.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(h.sessionMiddleware.Middleware)

		r.Route("/shelters", func(r chi.Router) {
			r.Get("/", h.ListShelters)
			r.Get("/{id}", h.GetShelter)

			r.Post("/{id}/beds", h.AdjustBeds)
			r.Post("/{id}/book", h.Book)
		})

		r.Get("/search", h.GetSearch)
		r.Put("/search", h.SaveSearch)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
