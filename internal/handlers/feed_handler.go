package handlers

import (
	"net/http"

	"treelof-api/internal/middleware"
	"treelof-api/pkg/utils"
)

// FeedHandler serves the live revision feed to trusted clients.
type FeedHandler struct {
	Upgrade http.HandlerFunc
}

func NewFeedHandler(upgrade http.HandlerFunc) *FeedHandler {
	return &FeedHandler{Upgrade: upgrade}
}

// Subscribe upgrades to a websocket
// GET /ws/revisions
func (h *FeedHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if !middleware.IsTrusted(r.Context()) {
		utils.Error(w, http.StatusForbidden, "unauthorized", "The revision feed is only available to trusted origins")
		return
	}
	h.Upgrade(w, r)
}
