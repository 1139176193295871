package domain

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Room is the live chat scope for one hostel. It exists in memory only while
// at least one participant is connected; pin and poll state additionally live
// in the room-state store so a rejoin can resync after a restart.
//
// All mutations of a room's shared state are serialized under Mutex. Separate
// rooms proceed fully in parallel.
type Room struct {
	Mutex           sync.RWMutex
	Key             string
	Participants    map[string]*Participant
	PinnedMessageID uuid.UUID
	ActivePoll      *Poll
	CreatedAt       time.Time
}

func NewRoom(key string) *Room {
	return &Room{
		Key:          key,
		Participants: make(map[string]*Participant),
		CreatedAt:    time.Now().UTC(),
	}
}

// RoomKeyForHostel derives the stable room key for a hostel code.
func RoomKeyForHostel(hostelCode string) string {
	return "hostel:" + strings.ToLower(strings.TrimSpace(hostelCode))
}
