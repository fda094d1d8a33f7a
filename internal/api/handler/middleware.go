package handler

import (
	"callgate/backend/internal/apperr"
	"callgate/backend/internal/models"
	"callgate/backend/internal/rooms"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	RequestIDHeader = "X-Request-ID"

	ctxRequestID = "requestID"
	ctxUser      = "user"
)

// RequestID tags each request with an id, reusing the client's if it sent one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// AccessLog writes one line per request.
func AccessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := logger.Info()
		if c.Writer.Status() >= 500 {
			ev = logger.Error()
		}
		ev = ev.
			Str("request_id", c.GetString(ctxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start))
		if user := currentUser(c); user != nil {
			ev = ev.Uint("user_id", user.ID)
		}
		ev.Msg("Request handled")
	}
}

// RequireAuth rejects requests without a valid bearer token. Browsers cannot set
// headers on websocket upgrades, so those may pass the token as ?token=.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok && websocket.IsWebSocketUpgrade(c.Request) {
			token = c.Query("token")
		}
		token = strings.TrimSpace(token)
		if token == "" {
			h.respondError(c, apperr.Unauthorized("No token provided"))
			return
		}

		user, err := h.Auth.Verify(c.Request.Context(), token)
		if err != nil {
			h.respondError(c, err)
			return
		}

		c.Set(ctxUser, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func identity(c *gin.Context) rooms.Identity {
	user := currentUser(c)
	if user == nil {
		return rooms.Identity{}
	}
	return rooms.Identity{UserID: user.ID, Username: user.Username}
}

// respondError maps err to a status and a short message. Internal causes are
// logged here and never sent to the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		h.Log.Error().Err(err).
			Str("request_id", c.GetString(ctxRequestID)).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	c.AbortWithStatusJSON(apperr.Status(kind), gin.H{"error": apperr.Message(err)})
}
