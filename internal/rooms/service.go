// Package rooms hands out media-server access for named rooms and records the
// lifecycle of the call sessions behind them.
package rooms

import (
	"callgate/backend/internal/apperr"
	"callgate/backend/internal/media"
	"callgate/backend/internal/models"
	"callgate/backend/internal/notify"
	"callgate/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// maxRoomNameLen matches the call_sessions.room_name column.
const maxRoomNameLen = 100

// Store is the part of the store the room service needs.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsersExcept(ctx context.Context, userID uint) ([]models.UserSummary, error)
	CreateSessionIfAbsent(ctx context.Context, session *models.CallSession) (bool, error)
	GetSessionByRoom(ctx context.Context, roomName string) (*models.CallSession, error)
	EnableRecording(ctx context.Context, roomName string) (int64, error)
	EndSession(ctx context.Context, roomName string, endedAt time.Time) (int64, error)
}

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID   uint
	Username string
}

// JoinResult tells the client where to connect and with what.
type JoinResult struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type Service struct {
	store    Store
	minter   media.Minter
	events   notify.Publisher
	mediaURL string
	now      func() time.Time
}

func NewService(store Store, minter media.Minter, events notify.Publisher, mediaURL string) *Service {
	if events == nil {
		events = notify.Discard{}
	}
	return &Service{
		store:    store,
		minter:   minter,
		events:   events,
		mediaURL: mediaURL,
		now:      time.Now,
	}
}

// Join mints a media token for roomName. When calleeUsername resolves to a user,
// the call session is recorded unless one already exists for the room. Token
// issuance does not depend on the session write: a store failure after minting
// still fails the request, and the minted token is simply discarded.
func (s *Service) Join(ctx context.Context, id Identity, roomName, calleeUsername string) (*JoinResult, error) {
	roomName, err := validateRoomName(roomName)
	if err != nil {
		return nil, err
	}

	token, err := s.minter.Mint(media.Grant{
		Identity: id.Username,
		Name:     id.Username,
		Room:     roomName,
	})
	if err != nil {
		return nil, apperr.Internal("Failed to join room", fmt.Errorf("mint token for room %s: %w", roomName, err))
	}
	log.Info().Str("username", id.Username).Str("room", roomName).Msg("Generated media token")

	if calleeUsername = strings.TrimSpace(calleeUsername); calleeUsername != "" {
		if err := s.recordSession(ctx, id, roomName, calleeUsername); err != nil {
			return nil, err
		}
	}

	return &JoinResult{Token: token, URL: s.mediaURL}, nil
}

func (s *Service) recordSession(ctx context.Context, id Identity, roomName, calleeUsername string) error {
	callee, err := s.store.GetUserByUsername(ctx, calleeUsername)
	if errors.Is(err, storage.ErrNotFound) {
		log.Debug().Str("room", roomName).Str("callee", calleeUsername).Msg("Callee not found, session not recorded")
		return nil
	}
	if err != nil {
		return apperr.Internal("Failed to join room", fmt.Errorf("find callee %s: %w", calleeUsername, err))
	}

	created, err := s.store.CreateSessionIfAbsent(ctx, &models.CallSession{
		RoomName:         roomName,
		CallerID:         id.UserID,
		CalleeID:         &callee.ID,
		StartedAt:        s.now(),
		RecordingEnabled: false,
		Status:           models.CallStatusActive,
	})
	if err != nil {
		return apperr.Internal("Failed to join room", fmt.Errorf("record session %s: %w", roomName, err))
	}
	if created {
		s.publish(ctx, notify.EventCallInvite, roomName, id.Username, []uint{callee.ID})
	}
	return nil
}

// StartRecording flags the room's session as recorded. Unknown rooms are not an error.
func (s *Service) StartRecording(ctx context.Context, id Identity, roomName string) error {
	roomName, err := validateRoomName(roomName)
	if err != nil {
		return err
	}

	n, err := s.store.EnableRecording(ctx, roomName)
	if err != nil {
		return apperr.Internal("Failed to start recording", fmt.Errorf("enable recording %s: %w", roomName, err))
	}
	if n > 0 {
		s.notifyParticipants(ctx, notify.EventRecordingStarted, roomName, id.Username)
	}
	return nil
}

// EndCall marks the room's active session as ended. Unknown or already ended
// rooms are not an error.
func (s *Service) EndCall(ctx context.Context, id Identity, roomName string) error {
	roomName, err := validateRoomName(roomName)
	if err != nil {
		return err
	}

	n, err := s.store.EndSession(ctx, roomName, s.now())
	if err != nil {
		return apperr.Internal("Failed to end call", fmt.Errorf("end session %s: %w", roomName, err))
	}
	if n > 0 {
		s.notifyParticipants(ctx, notify.EventCallEnded, roomName, id.Username)
	}
	return nil
}

// ListUsers is the call-target directory: every registered user but the caller.
func (s *Service) ListUsers(ctx context.Context, id Identity) ([]models.UserSummary, error) {
	users, err := s.store.ListUsersExcept(ctx, id.UserID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch users", err)
	}
	return users, nil
}

func (s *Service) notifyParticipants(ctx context.Context, typ notify.EventType, roomName, from string) {
	session, err := s.store.GetSessionByRoom(ctx, roomName)
	if err != nil {
		log.Warn().Err(err).Str("room", roomName).Msg("Could not load session for event")
		return
	}
	s.publish(ctx, typ, roomName, from, session.Participants())
}

func (s *Service) publish(ctx context.Context, typ notify.EventType, roomName, from string, to []uint) {
	ev := notify.Event{Type: typ, RoomName: roomName, From: from, To: to, At: s.now()}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("type", string(typ)).Str("room", roomName).Msg("Failed to publish call event")
	}
}

// validateRoomName rejects empty or blank names. Accepted names are used as
// given: "room42" and "room42 " are different rooms.
func validateRoomName(roomName string) (string, error) {
	if strings.TrimSpace(roomName) == "" {
		return "", apperr.BadRequest("Room name is required")
	}
	if utf8.RuneCountInString(roomName) > maxRoomNameLen {
		return "", apperr.BadRequest(fmt.Sprintf("Room name must be at most %d characters", maxRoomNameLen))
	}
	return roomName, nil
}
