package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/hostelhub/hostelchat/internal/domain"
)

type InMemoryChatRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]string
}

func NewInMemoryChatRoomRepository() *InMemoryChatRoomRepository {
	return &InMemoryChatRoomRepository{rooms: make(map[string]string)}
}

func (r *InMemoryChatRoomRepository) Provision(ctx context.Context, roomKey string, hostelName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomKey]; ok {
		return ErrChatAlreadyExists
	}
	r.rooms[roomKey] = hostelName
	return nil
}

func (r *InMemoryChatRoomRepository) Exists(ctx context.Context, roomKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomKey]
	return ok, nil
}

// InMemoryMessageRepository keeps every message in insertion order per room.
// The order of the backing slice is the store's total order, matching the
// seq column of the gorm implementation.
type InMemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string][]*domain.Message
}

func NewInMemoryMessageRepository() *InMemoryMessageRepository {
	return &InMemoryMessageRepository{messages: make(map[string][]*domain.Message)}
}

func (r *InMemoryMessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return errors.New("message is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *msg
	r.messages[msg.RoomKey] = append(r.messages[msg.RoomKey], &copied)
	return nil
}

func (r *InMemoryMessageRepository) GetByID(ctx context.Context, roomKey string, id uuid.UUID) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, msg := range r.messages[roomKey] {
		if msg.ID == id {
			copied := *msg
			return &copied, nil
		}
	}
	return nil, ErrMessageNotFound
}

func (r *InMemoryMessageRepository) Delete(ctx context.Context, roomKey string, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.messages[roomKey]
	for i, msg := range msgs {
		if msg.ID == id {
			r.messages[roomKey] = append(msgs[:i], msgs[i+1:]...)
			return nil
		}
	}
	return ErrMessageNotFound
}

func (r *InMemoryMessageRepository) Page(ctx context.Context, roomKey string, page int, pageSize int) ([]*domain.Message, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if page < 1 || pageSize < 1 {
		return nil, 0, errors.New("page and page size must be positive")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.messages[roomKey]
	count := len(msgs)
	totalPages := (count + pageSize - 1) / pageSize
	if page > totalPages {
		return []*domain.Message{}, totalPages, nil
	}

	offset := count - page*pageSize
	limit := pageSize
	if offset < 0 {
		limit += offset
		offset = 0
	}

	out := make([]*domain.Message, 0, limit)
	for _, msg := range msgs[offset : offset+limit] {
		copied := *msg
		out = append(out, &copied)
	}
	return out, totalPages, nil
}

// InMemoryRoomStateRepository is the room-state store used when no Redis
// address is configured, and by tests.
type InMemoryRoomStateRepository struct {
	mu    sync.RWMutex
	pins  map[string]*domain.Message
	polls map[string]*domain.Poll
}

func NewInMemoryRoomStateRepository() *InMemoryRoomStateRepository {
	return &InMemoryRoomStateRepository{
		pins:  make(map[string]*domain.Message),
		polls: make(map[string]*domain.Poll),
	}
}

func (r *InMemoryRoomStateRepository) SavePin(ctx context.Context, roomKey string, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *msg
	r.pins[roomKey] = &copied
	return nil
}

func (r *InMemoryRoomStateRepository) ClearPin(ctx context.Context, roomKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pins, roomKey)
	return nil
}

func (r *InMemoryRoomStateRepository) GetPin(ctx context.Context, roomKey string) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, ok := r.pins[roomKey]
	if !ok {
		return nil, nil
	}
	copied := *msg
	return &copied, nil
}

func (r *InMemoryRoomStateRepository) SavePoll(ctx context.Context, poll *domain.Poll) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.polls[poll.RoomKey] = clonePoll(poll)
	return nil
}

func (r *InMemoryRoomStateRepository) ClearPoll(ctx context.Context, roomKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.polls, roomKey)
	return nil
}

func (r *InMemoryRoomStateRepository) GetPoll(ctx context.Context, roomKey string) (*domain.Poll, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	poll, ok := r.polls[roomKey]
	if !ok {
		return nil, nil
	}
	return clonePoll(poll), nil
}

func clonePoll(poll *domain.Poll) *domain.Poll {
	copied := *poll
	copied.Options = append([]string(nil), poll.Options...)
	copied.Votes = make(map[int]int, len(poll.Votes))
	for k, v := range poll.Votes {
		copied.Votes[k] = v
	}
	copied.Voters = make(map[uuid.UUID]int, len(poll.Voters))
	for k, v := range poll.Voters {
		copied.Voters[k] = v
	}
	return &copied
}
