package models

import "time"

// CallStatus is the lifecycle state of a call session.
type CallStatus string

const (
	CallStatusActive CallStatus = "active"
	CallStatusEnded  CallStatus = "ended"
)

// CallSession records one named room's lifecycle. RoomName is the natural key:
// a second join for the same room never creates another row.
type CallSession struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	RoomName string `gorm:"size:100;uniqueIndex;not null" json:"roomName"`

	CallerID uint  `gorm:"not null" json:"callerId"`
	Caller   *User `gorm:"foreignKey:CallerID" json:"-"`
	// CalleeID is only set when the callee username resolved at join time.
	CalleeID *uint `json:"calleeId"`
	Callee   *User `gorm:"foreignKey:CalleeID" json:"-"`

	StartedAt time.Time  `gorm:"not null" json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt"`

	RecordingEnabled bool       `gorm:"not null;default:false" json:"recordingEnabled"`
	Status           CallStatus `gorm:"size:20;not null;default:'active';index:idx_call_sessions_status" json:"status"`
}

// Participants returns the user ids linked to the session.
func (s CallSession) Participants() []uint {
	ids := []uint{s.CallerID}
	if s.CalleeID != nil && *s.CalleeID != s.CallerID {
		ids = append(ids, *s.CalleeID)
	}
	return ids
}

// IsActive reports whether the call has not been ended yet.
func (s CallSession) IsActive() bool {
	return s.Status == CallStatusActive && s.EndedAt == nil
}
