package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hostelhub/hostelchat/internal/domain"
	"github.com/hostelhub/hostelchat/internal/metrics"
	"github.com/hostelhub/hostelchat/internal/repository"
	"github.com/hostelhub/hostelchat/lib/logger/sl"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrEmptyMessage        = errors.New("message requires text or a media reference")
	ErrMessageTooLong      = errors.New("message is too long")
	ErrPollActive          = errors.New("a poll is already active in this room")
	ErrNoActivePoll        = errors.New("no active poll in this room")
	ErrNotEnoughOptions    = errors.New("poll requires at least two options")
	ErrAlreadyVoted        = errors.New("vote already recorded for this poll")
	ErrInvalidOption       = errors.New("option index out of range")
	ErrNotPollCreator      = errors.New("only the poll creator can end the poll")
)

const defaultMaxMessageLength = 4000

// RoomService is the real-time hub: it keeps the live membership registry,
// fans out room events, and owns every mutation of shared room state
// (messages, pin, poll). All mutations for one room run under that room's
// mutex; separate rooms never contend.
type RoomService struct {
	messages repository.MessageRepository
	state    repository.RoomStateRepository
	log      *slog.Logger

	maxMessageLen int

	mu          sync.RWMutex
	activeRooms map[string]*domain.Room
}

func NewRoomService(messages repository.MessageRepository, state repository.RoomStateRepository, log *slog.Logger, maxMessageLen int) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessageLength
	}
	return &RoomService{
		messages:      messages,
		state:         state,
		log:           log,
		maxMessageLen: maxMessageLen,
		activeRooms:   make(map[string]*domain.Room),
	}
}

// JoinRoom registers a new participant. Rooms are created on demand; a
// freshly created room hydrates its pin and poll from the room-state store so
// state set before a restart is still live.
func (s *RoomService) JoinRoom(ctx context.Context, roomKey string, user *domain.User) (*domain.Participant, error) {
	const op = "service.room.join"
	log := s.log.With(slog.String("op", op), slog.String("room", roomKey))

	if user == nil {
		return nil, errors.New("user is required")
	}

	room, created := s.getOrCreateRoom(roomKey)
	if created {
		if err := s.hydrateRoom(ctx, room); err != nil {
			log.Warn("room state hydration failed", sl.Err(err))
		}
	}

	participant := domain.NewParticipant(user)

	room.Mutex.Lock()
	room.Participants[participant.ID] = participant
	count := len(room.Participants)
	room.Mutex.Unlock()

	metrics.ConnectedParticipants.Inc()
	log.Info("participant joined",
		"participant_id", participant.ID,
		"user_id", participant.UserID,
		"participants", count,
	)
	return participant, nil
}

// LeaveRoom removes a participant, closing its event channel. No presence
// notification is broadcast. The in-memory room entry is dropped once empty;
// pin and poll state stay in the room-state store.
func (s *RoomService) LeaveRoom(ctx context.Context, roomKey string, participantID string) error {
	room := s.getActiveRoom(roomKey)
	if room == nil {
		return ErrParticipantNotFound
	}

	room.Mutex.Lock()
	participant, ok := room.Participants[participantID]
	if !ok {
		room.Mutex.Unlock()
		return ErrParticipantNotFound
	}
	delete(room.Participants, participantID)
	roomEmpty := len(room.Participants) == 0
	room.Mutex.Unlock()

	participant.SetStatus(domain.ParticipantStatusDisconnected)
	close(participant.Events)

	metrics.ConnectedParticipants.Dec()

	if roomEmpty {
		s.removeActiveRoom(roomKey)
	}

	s.log.Info("participant left",
		"room", roomKey,
		"participant_id", participantID,
	)
	return nil
}

// RoomState returns the current pin and active poll for the resync fetch a
// client performs right after (re)joining.
func (s *RoomService) RoomState(ctx context.Context, roomKey string) (*domain.Message, *domain.Poll, error) {
	pin, err := s.state.GetPin(ctx, roomKey)
	if err != nil {
		return nil, nil, err
	}
	poll, err := s.state.GetPoll(ctx, roomKey)
	if err != nil {
		return nil, nil, err
	}
	if pin != nil {
		pin.Pinned = true
	}
	return pin, poll, nil
}

// HandleEvent routes one client-issued command. Validation failures come back
// as sentinel errors and leave room state untouched.
func (s *RoomService) HandleEvent(ctx context.Context, roomKey string, participantID string, event *domain.RoomEvent) error {
	const op = "service.room.event"
	if event == nil {
		return errors.New("event is required")
	}
	log := s.log.With(
		slog.String("op", op),
		slog.String("room", roomKey),
		slog.String("participant_id", participantID),
		slog.String("type", event.Type),
	)

	room := s.getActiveRoom(roomKey)
	if room == nil {
		return ErrParticipantNotFound
	}

	room.Mutex.RLock()
	participant, ok := room.Participants[participantID]
	room.Mutex.RUnlock()
	if !ok {
		return ErrParticipantNotFound
	}

	switch event.Type {
	case domain.EventSendMessage:
		return s.sendMessage(ctx, room, participant, event.Payload, log)
	case domain.EventPinMessage:
		return s.pinMessage(ctx, room, participant, event.Payload, log)
	case domain.EventUnpinMessage:
		return s.unpinMessage(ctx, room, participant, log)
	case domain.EventDeleteMessage:
		return s.deleteMessage(ctx, room, participant, event.Payload, log)
	case domain.EventCreatePoll:
		return s.createPoll(ctx, room, participant, event.Payload, log)
	case domain.EventVotePoll:
		return s.votePoll(ctx, room, participant, event.Payload, log)
	case domain.EventEndPoll:
		return s.endPoll(ctx, room, participant, event.Payload, log)
	case domain.EventLeave:
		return s.LeaveRoom(ctx, room.Key, participantID)
	default:
		return errors.New("unsupported event type: " + event.Type)
	}
}

func (s *RoomService) sendMessage(ctx context.Context, room *domain.Room, from *domain.Participant, payload map[string]any, log *slog.Logger) error {
	text := payloadString(payload, "text")
	imageURL := payloadString(payload, "image_url")
	audioURL := payloadString(payload, "audio_url")

	msg := domain.NewMessage(room.Key, from, text, imageURL, audioURL)
	if !msg.HasContent() {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(msg.Text) > s.maxMessageLen {
		return ErrMessageTooLong
	}

	room.Mutex.Lock()
	defer room.Mutex.Unlock()

	if err := s.messages.Save(ctx, msg); err != nil {
		log.Error("failed to save message", sl.Err(err))
		return err
	}
	metrics.MessagesPersisted.Inc()

	s.broadcastLocked(room, domain.RoomEvent{
		Type:     domain.EventNewMessage,
		Room:     room.Key,
		SenderID: from.ID,
		Payload:  messagePayload(msg),
	})
	return nil
}

func (s *RoomService) pinMessage(ctx context.Context, room *domain.Room, by *domain.Participant, payload map[string]any, log *slog.Logger) error {
	if !by.Role.Elevated() {
		return ErrPermissionDenied
	}
	messageID, err := payloadUUID(payload, "message_id")
	if err != nil {
		return err
	}

	room.Mutex.Lock()
	defer room.Mutex.Unlock()

	msg, err := s.messages.GetByID(ctx, room.Key, messageID)
	if err != nil {
		return err
	}
	msg.Pinned = true

	if err := s.state.SavePin(ctx, room.Key, msg); err != nil {
		log.Error("failed to persist pin", sl.Err(err))
		return err
	}
	// Pinning over an existing pin replaces it; there is never more than one.
	room.PinnedMessageID = messageID

	s.broadcastLocked(room, domain.RoomEvent{
		Type:     domain.EventMessagePinned,
		Room:     room.Key,
		SenderID: by.ID,
		Payload: map[string]any{
			"message_id":     messageID.String(),
			"pinned_message": messagePayload(msg),
		},
	})
	return nil
}

func (s *RoomService) unpinMessage(ctx context.Context, room *domain.Room, by *domain.Participant, log *slog.Logger) error {
	if !by.Role.Elevated() {
		return ErrPermissionDenied
	}

	room.Mutex.Lock()
	defer room.Mutex.Unlock()

	room.PinnedMessageID = uuid.Nil
	if err := s.state.ClearPin(ctx, room.Key); err != nil {
		log.Error("failed to clear pin", sl.Err(err))
		return err
	}

	s.broadcastLocked(room, domain.RoomEvent{
		Type:     domain.EventMessageUnpinned,
		Room:     room.Key,
		SenderID: by.ID,
	})
	return nil
}

func (s *RoomService) deleteMessage(ctx context.Context, room *domain.Room, by *domain.Participant, payload map[string]any, log *slog.Logger) error {
	messageID, err := payloadUUID(payload, "message_id")
	if err != nil {
		return err
	}

	room.Mutex.Lock()
	defer room.Mutex.Unlock()

	msg, err := s.messages.GetByID(ctx, room.Key, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != by.UserID && !by.Role.Elevated() {
		return ErrPermissionDenied
	}

	if err := s.messages.Delete(ctx, room.Key, messageID); err != nil {
		log.Error("failed to delete message", sl.Err(err))
		return err
	}

	// A pin must never reference a message that no longer exists. The row is
	// already gone at this point, so a failed pin-clear must not suppress the
	// delete broadcast; the stale store entry is replaced on the next pin.
	if room.PinnedMessageID == messageID {
		room.PinnedMessageID = uuid.Nil
		if err := s.state.ClearPin(ctx, room.Key); err != nil {
			log.Error("failed to clear pin of deleted message", sl.Err(err))
		}
		s.broadcastLocked(room, domain.RoomEvent{
			Type:     domain.EventMessageUnpinned,
			Room:     room.Key,
			SenderID: by.ID,
		})
	}

	s.broadcastLocked(room, domain.RoomEvent{
		Type:     domain.EventMessageDeleted,
		Room:     room.Key,
		SenderID: by.ID,
		Payload: map[string]any{
			"message_id": messageID.String(),
		},
	})
	return nil
}

func (s *RoomService) createPoll(ctx context.Context, room *domain.Room, by *domain.Participant, payload map[string]any, log *slog.Logger) error {
	question := strings.TrimSpace(payloadString(payload, "question"))
	if question == "" {
		return errors.New("poll question is required")
	}

	options := make([]string, 0, 4)
	for _, raw := range payloadStringSlice(payload, "options") {
		if opt := strings.TrimSpace(raw); opt != "" {
			options = append(options, opt)
		}
	}
	if len(options) < 2 {
		return ErrNotEnoughOptions
	}

	room.Mutex.Lock()
	defer room.Mutex.Unlock()

	if room.ActivePoll != nil {
		return ErrPollActive
	}

	poll := domain.NewPoll(room.Key, question, options, by.UserID)
	room.ActivePoll = poll
	if err := s.state.SavePoll(ctx, poll); err != nil {
		room.ActivePoll = nil
		log.Error("failed to persist poll", sl.Err(err))
		return err
	}

	log.Info("poll created", "poll_id", poll.ID, "options", len(options))
	s.broadcastLocked(room, domain.RoomEvent{
		Type:     domain.EventNewPoll,
		Room:     room.Key,
		SenderID: by.ID,
		Payload:  pollPayload(poll),
	})
	return nil
}

func (s *RoomService) votePoll(ctx context.Context, room *domain.Room, by *domain.Participant, payload map[string]any, log *slog.Logger) error {
	pollID, err := payloadUUID(payload, "poll_id")
	if err != nil {
		return err
	}
	optionIndex, err := payloadInt(payload, "option_index")
	if err != nil {
		return err
	}

	room.Mutex.Lock()
	defer room.Mutex.Unlock()

	poll := room.ActivePoll
	if poll == nil || poll.ID != pollID {
		return ErrNoActivePoll
	}
	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return ErrInvalidOption
	}
	if poll.HasVoted(by.UserID) {
		return ErrAlreadyVoted
	}

	poll.RecordVote(by.UserID, optionIndex)
	if err := s.state.SavePoll(ctx, poll); err != nil {
		poll.RevokeVote(by.UserID)
		log.Error("failed to persist poll vote", sl.Err(err))
		return err
	}

	s.broadcastLocked(room, domain.RoomEvent{
		Type:     domain.EventPollVoteUpdated,
		Room:     room.Key,
		SenderID: by.ID,
		Payload:  pollPayload(poll),
	})
	return nil
}

func (s *RoomService) endPoll(ctx context.Context, room *domain.Room, by *domain.Participant, payload map[string]any, log *slog.Logger) error {
	pollID, err := payloadUUID(payload, "poll_id")
	if err != nil {
		return err
	}

	room.Mutex.Lock()
	defer room.Mutex.Unlock()

	poll := room.ActivePoll
	if poll == nil || poll.ID != pollID {
		return ErrNoActivePoll
	}
	if poll.CreatedBy != by.UserID {
		return ErrNotPollCreator
	}

	room.ActivePoll = nil
	if err := s.state.ClearPoll(ctx, room.Key); err != nil {
		room.ActivePoll = poll
		log.Error("failed to clear poll", sl.Err(err))
		return err
	}

	s.broadcastLocked(room, domain.RoomEvent{
		Type:     domain.EventPollEnded,
		Room:     room.Key,
		SenderID: by.ID,
	})

	// The poll itself is discarded; only the announcement message survives.
	announcement := domain.NewSystemMessage(room.Key, pollResultText(poll))
	if err := s.messages.Save(ctx, announcement); err != nil {
		log.Error("failed to save poll announcement", sl.Err(err))
		return nil
	}
	metrics.MessagesPersisted.Inc()
	s.broadcastLocked(room, domain.RoomEvent{
		Type:    domain.EventNewMessage,
		Room:    room.Key,
		Payload: messagePayload(announcement),
	})

	log.Info("poll ended", "poll_id", poll.ID, "total_votes", poll.TotalVotes())
	return nil
}

func pollResultText(poll *domain.Poll) string {
	winners := poll.Winners()
	names := make([]string, 0, len(winners))
	for _, idx := range winners {
		names = append(names, poll.Options[idx])
	}
	if len(names) == 1 {
		return fmt.Sprintf("Poll closed: %q. Winner: %s (%d of %d votes)",
			poll.Question, names[0], poll.Votes[winners[0]], poll.TotalVotes())
	}
	return fmt.Sprintf("Poll closed: %q. Tie between %s (%d votes total)",
		poll.Question, strings.Join(names, ", "), poll.TotalVotes())
}

// broadcastLocked enqueues an event for every participant of the room. The
// caller holds the room mutex, which is what makes delivery order equal
// acceptance order; EnqueueEvent never blocks on a slow client.
func (s *RoomService) broadcastLocked(room *domain.Room, event domain.RoomEvent) {
	metrics.EventsBroadcast.WithLabelValues(event.Type).Inc()
	for _, participant := range room.Participants {
		participant.EnqueueEvent(event)
	}
}

func (s *RoomService) getOrCreateRoom(roomKey string) (*domain.Room, bool) {
	s.mu.RLock()
	room := s.activeRooms[roomKey]
	s.mu.RUnlock()
	if room != nil {
		return room, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if room := s.activeRooms[roomKey]; room != nil {
		return room, false
	}
	room = domain.NewRoom(roomKey)
	s.activeRooms[roomKey] = room
	return room, true
}

func (s *RoomService) hydrateRoom(ctx context.Context, room *domain.Room) error {
	pin, err := s.state.GetPin(ctx, room.Key)
	if err != nil {
		return err
	}
	poll, err := s.state.GetPoll(ctx, room.Key)
	if err != nil {
		return err
	}

	// The snapshot was read outside the room mutex; state set on the live
	// room in the meantime wins over the possibly stale store read.
	room.Mutex.Lock()
	defer room.Mutex.Unlock()
	if pin != nil && room.PinnedMessageID == uuid.Nil {
		room.PinnedMessageID = pin.ID
	}
	if room.ActivePoll == nil {
		room.ActivePoll = poll
	}
	return nil
}

func (s *RoomService) getActiveRoom(roomKey string) *domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeRooms[roomKey]
}

func (s *RoomService) removeActiveRoom(roomKey string) {
	s.mu.Lock()
	delete(s.activeRooms, roomKey)
	s.mu.Unlock()
}
