package book

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transactions", h.Create)
	r.Post("/transactions/validate", h.ValidateBalance)
	r.Get("/transactions/{id}", h.Get)
	r.Post("/transactions/{id}/rollback", h.Rollback)
	r.Get("/balances", h.MultipleBalances)
	r.Get("/balances/{accountId}", h.AccountBalance)
	r.Get("/trial-balance", h.TrialBalance)
}
