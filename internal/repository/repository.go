package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hostelhub/hostelchat/internal/domain"
)

var (
	ErrChatNotProvisioned = errors.New("chat room not provisioned")
	ErrChatAlreadyExists  = errors.New("chat room already exists")
	ErrMessageNotFound    = errors.New("message not found")
)

// ChatRoomRepository tracks which hostels have a provisioned group chat.
// History reads against an unprovisioned room surface a distinct condition
// rather than an empty page.
type ChatRoomRepository interface {
	Provision(ctx context.Context, roomKey string, hostelName string) error
	Exists(ctx context.Context, roomKey string) (bool, error)
}

// MessageRepository is the durable message store. Page numbering walks
// backward in time: page 1 is the most recent page, messages within a page
// are ordered oldest to newest.
type MessageRepository interface {
	Save(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, roomKey string, id uuid.UUID) (*domain.Message, error)
	Delete(ctx context.Context, roomKey string, id uuid.UUID) error
	Page(ctx context.Context, roomKey string, page int, pageSize int) ([]*domain.Message, int, error)
}

// RoomStateRepository holds the current pin and active poll per room so a
// rejoining client can resync authoritatively. Both getters return nil with
// no error when the room has no such state.
type RoomStateRepository interface {
	SavePin(ctx context.Context, roomKey string, msg *domain.Message) error
	ClearPin(ctx context.Context, roomKey string) error
	GetPin(ctx context.Context, roomKey string) (*domain.Message, error)
	SavePoll(ctx context.Context, poll *domain.Poll) error
	ClearPoll(ctx context.Context, roomKey string) error
	GetPoll(ctx context.Context, roomKey string) (*domain.Poll, error)
}
