package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatRoom struct {
	RoomKey    string    `gorm:"size:64;primaryKey"`
	HostelName string    `gorm:"size:255;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

type Message struct {
	// Seq gives the per-store total order; created_at alone can collide.
	Seq        uint64    `gorm:"primaryKey;autoIncrement"`
	ID         uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	RoomKey    string    `gorm:"size:64;index;not null"`
	SenderID   uuid.UUID `gorm:"type:uuid;index"`
	SenderName string    `gorm:"size:255;not null"`
	Text       string    `gorm:"type:text"`
	ImageURL   string    `gorm:"size:512"`
	AudioURL   string    `gorm:"size:512"`
	System     bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"index;not null"`
}
