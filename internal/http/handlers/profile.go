package handlers

import (
	"net/http"
)

// ProfileBalance returns the caller's balance, credited with the net amount
// of every completed donation received.
func (a *App) ProfileBalance(w http.ResponseWriter, r *http.Request) {
	viewer, ok := a.identity(w, r)
	if !ok {
		return
	}
	u, err := a.Users.GetByID(r.Context(), viewer.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"user_id": u.ID,
		"balance": u.Balance,
	})
}
