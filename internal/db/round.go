package db

import "time"

type Round struct {
	ID            uint      `gorm:"primaryKey"`
	RoomID        uint      `gorm:"index;not null;uniqueIndex:idx_rounds_room_turn"`
	Number        int       `gorm:"not null"`
	Turn          int       `gorm:"not null;uniqueIndex:idx_rounds_room_turn"`
	Drawer        string    `gorm:"size:64;not null"`
	Keyword       string    `gorm:"size:200;not null"`
	DrawingRef    string    `gorm:"size:2048"`
	AutoAvailable bool      `gorm:"not null;default:false"`
	ResolvedAt    time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	Judgments     []Judgment
}

type Judgment struct {
	ID            uint      `gorm:"primaryKey"`
	RoundID       uint      `gorm:"index;not null"`
	Guesser       string    `gorm:"size:64;not null"`
	Guess         string    `gorm:"size:280;not null"`
	AutoAvailable bool      `gorm:"not null;default:false"`
	AutoCorrect   bool      `gorm:"not null;default:false"`
	AutoReason    string    `gorm:"size:500"`
	HumanDecision bool      `gorm:"not null"`
	Correct       bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}
