package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/hostelhub/hostelchat/internal/domain"
)

type MessageResponse struct {
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

type PollResponse struct {
	ID          uuid.UUID `json:"id"`
	RoomKey     string    `json:"room_key"`
	Question    string    `json:"question"`
	Options     []string  `json:"options"`
	Votes       []int     `json:"votes"`
	Percentages []int     `json:"percentages"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func MessageToApi(m *domain.Message) *MessageResponse {
	return &MessageResponse{
		ID:         m.ID,
		RoomKey:    m.RoomKey,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Text:       m.Text,
		ImageURL:   m.ImageURL,
		AudioURL:   m.AudioURL,
		System:     m.System,
		Pinned:     m.Pinned,
		CreatedAt:  m.CreatedAt,
	}
}

func PollToApi(p *domain.Poll) *PollResponse {
	votes := make([]int, len(p.Options))
	for i := range p.Options {
		votes[i] = p.Votes[i]
	}
	return &PollResponse{
		ID:          p.ID,
		RoomKey:     p.RoomKey,
		Question:    p.Question,
		Options:     append([]string(nil), p.Options...),
		Votes:       votes,
		Percentages: p.Percentages(),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}
}
