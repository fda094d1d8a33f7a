package storage

import (
	"callgate/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

const sqlitePrefix = "sqlite://"

type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListUsersExcept(ctx context.Context, userID uint) ([]models.UserSummary, error)

	CreateSessionIfAbsent(ctx context.Context, session *models.CallSession) (bool, error)
	GetSessionByRoom(ctx context.Context, roomName string) (*models.CallSession, error)
	ListSessions(ctx context.Context, status models.CallStatus) ([]models.CallSession, error)
	EnableRecording(ctx context.Context, roomName string) (int64, error)
	EndSession(ctx context.Context, roomName string, endedAt time.Time) (int64, error)
}

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Open connects to PostgreSQL, or to a SQLite file when the URL starts with sqlite://.
func Open(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(databaseURL, sqlitePrefix); ok {
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// Migrate creates the users and call_sessions tables and their indexes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.CallSession{},
	)
}

// CreateUser inserts a new user; a taken username or email yields ErrDuplicate.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UserExists reports whether the username or the email is already registered.
func (s *Service) UserExists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListUsersExcept returns every user but userID, ordered by username.
func (s *Service) ListUsersExcept(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	users := []models.UserSummary{}
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Select("id", "username").
		Where("id <> ?", userID).
		Order("username asc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CreateSessionIfAbsent inserts the session unless a row for its room name exists.
// It is a single INSERT ... ON CONFLICT (room_name) DO NOTHING, so concurrent
// callers race safely; the returned bool is true only for the writer that won.
func (s *Service) CreateSessionIfAbsent(ctx context.Context, session *models.CallSession) (bool, error) {
	if session.Status == "" {
		session.Status = models.CallStatusActive
	}

	result := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_name"}},
			DoNothing: true,
		}).
		Create(session)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) GetSessionByRoom(ctx context.Context, roomName string) (*models.CallSession, error) {
	var session models.CallSession
	if err := s.DB.WithContext(ctx).Where("room_name = ?", roomName).First(&session).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

// ListSessions returns sessions newest first; an empty status matches all.
func (s *Service) ListSessions(ctx context.Context, status models.CallStatus) ([]models.CallSession, error) {
	var sessions []models.CallSession
	q := s.DB.WithContext(ctx).Preload("Caller").Preload("Callee").Order("started_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// EnableRecording sets the recording flag regardless of the session status.
func (s *Service) EnableRecording(ctx context.Context, roomName string) (int64, error) {
	result := s.DB.WithContext(ctx).Model(&models.CallSession{}).
		Where("room_name = ?", roomName).
		Update("recording_enabled", true)
	return result.RowsAffected, result.Error
}

// EndSession moves an active session to ended, setting ended_at in the same statement.
// Already ended sessions are left untouched so ended_at is written once.
func (s *Service) EndSession(ctx context.Context, roomName string, endedAt time.Time) (int64, error) {
	result := s.DB.WithContext(ctx).Model(&models.CallSession{}).
		Where("room_name = ? AND status = ?", roomName, models.CallStatusActive).
		Updates(map[string]interface{}{
			"ended_at": endedAt,
			"status":   models.CallStatusEnded,
		})
	return result.RowsAffected, result.Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
