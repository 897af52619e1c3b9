package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires the REST routes and middleware around the handler.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(handler.Logger))
	r.Use(loggingMiddleware(handler.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", handler.createTransfer)
			r.Get("/", handler.listTransfers)
			r.Get("/{id}", handler.getTransfer)
			r.Post("/{id}/complete", handler.completeTransfer)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", handler.createAccount)
			r.Get("/", handler.listAccounts)
			r.Get("/{id}", handler.getAccount)
			r.Post("/{id}/activate", handler.activateAccount)
			r.Post("/{id}/deposit", handler.depositToAccount)
		})
	})
	return r
}
