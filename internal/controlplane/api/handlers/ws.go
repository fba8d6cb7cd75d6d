package handlers

import (
	"net/http"

	"github.com/shareguard/shareguard/internal/controlplane/api/middleware"
	"github.com/shareguard/shareguard/pkg/notify"
)

// WSHandler serves NotificationAPI.connect: the websocket upgrade
// subscribers use to receive live change and health issue events.
type WSHandler struct {
	notifier *notify.Service
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(notifier *notify.Service) *WSHandler {
	return &WSHandler{notifier: notifier}
}

// Connect handles GET /api/v1/ws.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		userID = claims.UserID()
	}
	h.notifier.ServeWS(w, r, userID)
}
