package service

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/hostelhub/hostelchat/internal/domain"
)

// Payload helpers. Event payloads arrive as generic JSON objects off the
// socket, so values need type-checked extraction before use.

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}

func payloadStringSlice(payload map[string]any, key string) []string {
	if payload == nil {
		return nil
	}
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func payloadUUID(payload map[string]any, key string) (uuid.UUID, error) {
	value := payloadString(payload, key)
	if value == "" {
		return uuid.Nil, errors.New(key + " is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.New(key + " must be a valid uuid")
	}
	return id, nil
}

func payloadInt(payload map[string]any, key string) (int, error) {
	if payload == nil {
		return 0, errors.New(key + " is required")
	}
	switch value := payload[key].(type) {
	case float64:
		// JSON numbers arrive as float64; 1.9 must not truncate to index 1.
		if value != math.Trunc(value) {
			return 0, errors.New(key + " must be an integer")
		}
		return int(value), nil
	case int:
		return value, nil
	default:
		return 0, errors.New(key + " must be a number")
	}
}

func messagePayload(msg *domain.Message) map[string]any {
	payload := map[string]any{
		"id":          msg.ID.String(),
		"room_key":    msg.RoomKey,
		"sender_id":   msg.SenderID.String(),
		"sender_name": msg.SenderName,
		"created_at":  msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if msg.Text != "" {
		payload["text"] = msg.Text
	}
	if msg.ImageURL != "" {
		payload["image_url"] = msg.ImageURL
	}
	if msg.AudioURL != "" {
		payload["audio_url"] = msg.AudioURL
	}
	if msg.System {
		payload["system"] = true
	}
	return payload
}

func pollPayload(poll *domain.Poll) map[string]any {
	votes := make([]int, len(poll.Options))
	for i := range poll.Options {
		votes[i] = poll.Votes[i]
	}
	voters := make(map[string]int, len(poll.Voters))
	for userID, option := range poll.Voters {
		voters[userID.String()] = option
	}
	return map[string]any{
		"id":          poll.ID.String(),
		"room_key":    poll.RoomKey,
		"question":    poll.Question,
		"options":     poll.Options,
		"votes":       votes,
		"voters":      voters,
		"percentages": poll.Percentages(),
		"created_by":  poll.CreatedBy.String(),
		"created_at":  poll.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
