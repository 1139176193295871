package service

import (
	"context"

	"github.com/hostelhub/hostelchat/internal/domain"
)

type RoomInteractor interface {
	JoinRoom(ctx context.Context, roomKey string, user *domain.User) (*domain.Participant, error)
	LeaveRoom(ctx context.Context, roomKey string, participantID string) error
	HandleEvent(ctx context.Context, roomKey string, participantID string, event *domain.RoomEvent) error
	RoomState(ctx context.Context, roomKey string) (*domain.Message, *domain.Poll, error)
}

type HistoryInteractor interface {
	GetPage(ctx context.Context, roomKey string, page int) ([]*domain.Message, int, error)
	ProvisionRoom(ctx context.Context, hostelCode string, hostelName string, by *domain.User) (string, error)
}
