package db

import "time"

const (
	RoomStatusOpen   = "open"
	RoomStatusClosed = "closed"
)

// Room is one hosted game. Codes are recycled once a room closes, so only
// open rooms are looked up by code.
type Room struct {
	ID          uint      `gorm:"primaryKey"`
	Code        string    `gorm:"size:12;index;not null"`
	Creator     string    `gorm:"size:64;not null"`
	MaxPlayers  int       `gorm:"not null"`
	TotalRounds int       `gorm:"not null"`
	Status      string    `gorm:"size:16;not null;default:open"`
	CloseReason string    `gorm:"size:32"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
	ClosedAt    *time.Time
	Rounds      []Round
	Events      []Event
}
