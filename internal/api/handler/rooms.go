package handler

import (
	"callgate/backend/internal/apperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

type joinRequest struct {
	RoomName       string `json:"roomName"`
	CalleeUsername string `json:"calleeUsername"`
}

type roomRequest struct {
	RoomName string `json:"roomName"`
}

func (h *Handler) JoinRoom(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.BadRequest("Invalid request body"))
		return
	}

	res, err := h.Rooms.Join(c.Request.Context(), identity(c), req.RoomName, req.CalleeUsername)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) StartRecording(c *gin.Context) {
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.BadRequest("Invalid request body"))
		return
	}

	if err := h.Rooms.StartRecording(c.Request.Context(), identity(c), req.RoomName); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recording started"})
}

func (h *Handler) EndCall(c *gin.Context) {
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.BadRequest("Invalid request body"))
		return
	}

	if err := h.Rooms.EndCall(c.Request.Context(), identity(c), req.RoomName); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Call ended"})
}

// ListUsers returns every other registered user. This is a directory, not presence.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Rooms.ListUsers(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
