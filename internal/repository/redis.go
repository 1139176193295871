package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hostelhub/hostelchat/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisRoomStateRepository mirrors the current pin and active poll per room
// into Redis so the state survives a process restart and a rejoining client
// can resync from an authoritative source.
type RedisRoomStateRepository struct {
	client *redis.Client
}

func NewRedisRoomStateRepository(ctx context.Context, addr string) (*RedisRoomStateRepository, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisRoomStateRepository{client: client}, nil
}

func (r *RedisRoomStateRepository) Close() error {
	return r.client.Close()
}

func pinKey(roomKey string) string {
	return fmt.Sprintf("room:%s:pin", roomKey)
}

func pollKey(roomKey string) string {
	return fmt.Sprintf("room:%s:poll", roomKey)
}

func (r *RedisRoomStateRepository) SavePin(ctx context.Context, roomKey string, msg *domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, pinKey(roomKey), data, 0).Err()
}

func (r *RedisRoomStateRepository) ClearPin(ctx context.Context, roomKey string) error {
	return r.client.Del(ctx, pinKey(roomKey)).Err()
}

func (r *RedisRoomStateRepository) GetPin(ctx context.Context, roomKey string) (*domain.Message, error) {
	data, err := r.client.Get(ctx, pinKey(roomKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *RedisRoomStateRepository) SavePoll(ctx context.Context, poll *domain.Poll) error {
	data, err := json.Marshal(poll)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, pollKey(poll.RoomKey), data, 0).Err()
}

func (r *RedisRoomStateRepository) ClearPoll(ctx context.Context, roomKey string) error {
	return r.client.Del(ctx, pollKey(roomKey)).Err()
}

func (r *RedisRoomStateRepository) GetPoll(ctx context.Context, roomKey string) (*domain.Poll, error) {
	data, err := r.client.Get(ctx, pollKey(roomKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var poll domain.Poll
	if err := json.Unmarshal(data, &poll); err != nil {
		return nil, err
	}
	return &poll, nil
}
