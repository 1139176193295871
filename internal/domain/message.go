package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is a single chat entry in a hostel room. A message carries text,
// a media reference (the URL handed back by the upload collaborator), or
// both, but never neither.
type Message struct {
	ID         uuid.UUID `json:"id"`
	RoomKey    string    `json:"room_key"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	AudioURL   string    `json:"audio_url,omitempty"`
	System     bool      `json:"system,omitempty"`
	Pinned     bool      `json:"pinned,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewMessage(roomKey string, sender *Participant, text, imageURL, audioURL string) *Message {
	msg := &Message{
		ID:        uuid.New(),
		RoomKey:   roomKey,
		Text:      strings.TrimSpace(text),
		ImageURL:  imageURL,
		AudioURL:  audioURL,
		CreatedAt: time.Now().UTC(),
	}
	if sender != nil {
		msg.SenderID = sender.UserID
		msg.SenderName = sender.DisplayName
	}
	return msg
}

// NewSystemMessage builds a server-originated announcement, such as the
// summary broadcast when a poll is closed.
func NewSystemMessage(roomKey string, text string) *Message {
	return &Message{
		ID:         uuid.New(),
		RoomKey:    roomKey,
		SenderName: "system",
		Text:       text,
		System:     true,
		CreatedAt:  time.Now().UTC(),
	}
}

// HasContent reports whether the message carries text or a media reference.
func (m *Message) HasContent() bool {
	return m.Text != "" || m.ImageURL != "" || m.AudioURL != ""
}
