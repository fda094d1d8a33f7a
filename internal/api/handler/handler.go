package handler

import (
	"callgate/backend/internal/auth"
	"callgate/backend/internal/models"
	"callgate/backend/internal/notify"
	"callgate/backend/internal/rooms"
	"context"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// AuthService is what the handlers need from the auth package.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*auth.Result, error)
	Login(ctx context.Context, username, password string) (*auth.Result, error)
	Verify(ctx context.Context, token string) (*models.User, error)
}

// RoomService is what the handlers need from the rooms package.
type RoomService interface {
	Join(ctx context.Context, id rooms.Identity, roomName, calleeUsername string) (*rooms.JoinResult, error)
	StartRecording(ctx context.Context, id rooms.Identity, roomName string) error
	EndCall(ctx context.Context, id rooms.Identity, roomName string) error
	ListUsers(ctx context.Context, id rooms.Identity) ([]models.UserSummary, error)
}

// Handler holds the services behind the HTTP routes.
type Handler struct {
	Auth  AuthService
	Rooms RoomService
	Hub   *notify.Hub
	Log   zerolog.Logger

	allowedOrigins []string
	upgrader       websocket.Upgrader
}

func NewHandler(authSvc AuthService, roomSvc RoomService, hub *notify.Hub, logger zerolog.Logger, allowedOrigins []string) *Handler {
	h := &Handler{
		Auth:           authSvc,
		Rooms:          roomSvc,
		Hub:            hub,
		Log:            logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.originAllowed,
	}
	return h
}

// NewRouter wires middleware and routes. prefix is prepended to /auth and /rooms.
func (h *Handler) NewRouter(prefix string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(h.Log), h.cors())

	r.GET("/health", h.Health)

	api := r.Group(prefix)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/verify", h.RequireAuth(), h.Verify)

	roomsGroup := api.Group("/rooms", h.RequireAuth())
	roomsGroup.POST("/join", h.JoinRoom)
	roomsGroup.POST("/start-recording", h.StartRecording)
	roomsGroup.POST("/end-call", h.EndCall)
	roomsGroup.GET("/users", h.ListUsers)
	roomsGroup.GET("/events", h.ServeEvents)

	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) cors() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{RequestIDHeader},
	}
	if len(h.allowedOrigins) == 0 || slices.Contains(h.allowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = h.allowedOrigins
	}
	return cors.New(cfg)
}

func (h *Handler) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 || slices.Contains(h.allowedOrigins, "*") {
		return true
	}
	return slices.Contains(h.allowedOrigins, origin)
}
