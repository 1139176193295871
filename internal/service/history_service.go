package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hostelhub/hostelchat/internal/domain"
	"github.com/hostelhub/hostelchat/internal/metrics"
	"github.com/hostelhub/hostelchat/internal/repository"
)

const defaultHistoryPageSize = 50

// HistoryService serves the paginated read side of a room's transcript.
// Every call reads through to the durable store.
type HistoryService struct {
	messages repository.MessageRepository
	chats    repository.ChatRoomRepository
	log      *slog.Logger
	pageSize int
}

func NewHistoryService(messages repository.MessageRepository, chats repository.ChatRoomRepository, log *slog.Logger, pageSize int) *HistoryService {
	if log == nil {
		log = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = defaultHistoryPageSize
	}
	return &HistoryService{
		messages: messages,
		chats:    chats,
		log:      log,
		pageSize: pageSize,
	}
}

// GetPage returns one page of a room's history plus the total page count.
// Page 1 is the newest page; requesting past the end yields an empty page.
// A room whose chat was never provisioned reports ErrChatNotProvisioned,
// which is distinct from an empty history.
func (s *HistoryService) GetPage(ctx context.Context, roomKey string, page int) ([]*domain.Message, int, error) {
	const op = "service.history.page"

	if page < 1 {
		return nil, 0, errors.New("page must be positive")
	}

	exists, err := s.chats.Exists(ctx, roomKey)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, repository.ErrChatNotProvisioned
	}

	messages, totalPages, err := s.messages.Page(ctx, roomKey, page, s.pageSize)
	if err != nil {
		return nil, 0, err
	}

	metrics.HistoryPagesServed.Inc()
	s.log.Debug("history page served",
		slog.String("op", op),
		slog.String("room", roomKey),
		slog.Int("page", page),
		slog.Int("total_pages", totalPages),
	)
	return messages, totalPages, nil
}

// ProvisionRoom creates the hostel's chat room record. Elevated roles only.
func (s *HistoryService) ProvisionRoom(ctx context.Context, hostelCode string, hostelName string, by *domain.User) (string, error) {
	const op = "service.history.provision"

	if by == nil || !by.Role.Elevated() {
		return "", ErrPermissionDenied
	}
	if strings.TrimSpace(hostelCode) == "" {
		return "", errors.New("hostel code is required")
	}

	roomKey := domain.RoomKeyForHostel(hostelCode)
	if err := s.chats.Provision(ctx, roomKey, strings.TrimSpace(hostelName)); err != nil {
		return "", err
	}

	s.log.Info("chat room provisioned",
		slog.String("op", op),
		slog.String("room", roomKey),
	)
	return roomKey, nil
}
