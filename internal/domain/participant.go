package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type ParticipantStatus string

const (
	ParticipantStatusConnecting   ParticipantStatus = "connecting"
	ParticipantStatusConnected    ParticipantStatus = "connected"
	ParticipantStatusDisconnected ParticipantStatus = "disconnected"
)

// Participant represents one live connection to a room. The same user may
// hold several participants (one per device).
type Participant struct {
	ID          string
	UserID      uuid.UUID
	DisplayName string
	Role        Role
	Status      ParticipantStatus
	JoinedAt    time.Time
	Mutex       sync.RWMutex
	Socket      *websocket.Conn
	Events      chan RoomEvent
}

func NewParticipant(user *User) *Participant {
	return &Participant{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		DisplayName: user.Name,
		Role:        user.Role,
		Status:      ParticipantStatusConnecting,
		JoinedAt:    time.Now().UTC(),
		Events:      make(chan RoomEvent, 32),
	}
}

// EnqueueEvent hands an event to the participant's write loop without
// blocking. A participant whose buffer is full misses the event rather than
// stalling delivery to the rest of the room.
func (p *Participant) EnqueueEvent(event RoomEvent) {
	select {
	case p.Events <- event:
	default:
	}
}

func (p *Participant) SetStatus(status ParticipantStatus) {
	p.Mutex.Lock()
	defer p.Mutex.Unlock()
	p.Status = status
}
