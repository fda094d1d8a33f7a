package handler

import (
	"callgate/backend/internal/notify"

	"github.com/gin-gonic/gin"
)

// ServeEvents upgrades to a websocket that streams call events for the caller.
func (h *Handler) ServeEvents(c *gin.Context) {
	user := currentUser(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.Log.Warn().Err(err).Str("request_id", c.GetString(ctxRequestID)).Msg("Websocket upgrade failed")
		return
	}

	client := notify.NewWebSocketClient(h.Hub, conn, user.ID)
	h.Hub.Register(client)
	client.Run()
}
