package handlers

import (
	"errors"
	"net/http"

	"fotnik/internal/domain"
)

// TokensGet returns the caller's remaining generation token balance.
func (a *App) TokensGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	balance, err := a.Tokens.Balance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusPaymentRequired, "no_tokens", "no token allocation found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load token balance")
		return
	}
	a.json(w, http.StatusOK, map[string]int{"token_balance": balance})
}
