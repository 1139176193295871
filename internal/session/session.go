package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hostelhub/hostelchat/internal/domain"
)

type State int

const (
	StateDisconnected State = iota
	StateJoining
	StateJoined
)

var (
	ErrNotJoined      = errors.New("session is not joined")
	ErrAlreadyJoining = errors.New("join already in progress")
	ErrUploadInFlight = errors.New("an upload is already in flight")
)

// Session is the per-user view of one room: an ordered transcript fed by
// live events (appended) and history pages (prepended), the current pin and
// poll, and the private starred-message set.
//
// Live events are idempotent here: a replayed pin or a stale unpin for a
// superseded pin leaves the state unchanged.
type Session struct {
	mu sync.Mutex

	roomKey string
	user    *domain.User
	stars   *StarStore

	state      State
	transcript []*domain.Message
	seen       map[uuid.UUID]struct{}
	pinned     *domain.Message
	poll       *domain.Poll

	nextPage   int
	totalPages int
	hasMore    bool

	uploading bool
}

func NewSession(roomKey string, user *domain.User, stars *StarStore) *Session {
	if stars == nil {
		stars = NewStarStore("")
	}
	return &Session{
		roomKey: roomKey,
		user:    user,
		stars:   stars,
		state:   StateDisconnected,
		seen:    make(map[uuid.UUID]struct{}),
	}
}

// BeginJoin moves the session into the joining state. The cached pin and
// poll from a previous connection stay visible as a placeholder until the
// resync in CompleteJoin replaces them.
func (s *Session) BeginJoin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDisconnected {
		return ErrAlreadyJoining
	}
	s.state = StateJoining
	return nil
}

// CompleteJoin finishes a (re)join with the authoritative room state fetched
// from the server. The transcript and pagination cursor reset: history must
// be re-fetched after every reconnect.
func (s *Session) CompleteJoin(pinned *domain.Message, poll *domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoining {
		return ErrNotJoined
	}
	s.state = StateJoined
	s.transcript = nil
	s.seen = make(map[uuid.UUID]struct{})
	s.pinned = pinned
	s.poll = poll
	s.nextPage = 1
	s.totalPages = 0
	s.hasMore = true
	return nil
}

// Disconnect drops the session to its terminal state. Local state is kept
// only as a placeholder for the next join.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ApplyHistoryPage prepends one fetched page and advances the cursor.
func (s *Session) ApplyHistoryPage(messages []*domain.Message, totalPages int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return ErrNotJoined
	}

	fresh := make([]*domain.Message, 0, len(messages))
	for _, msg := range messages {
		if _, ok := s.seen[msg.ID]; ok {
			continue
		}
		s.seen[msg.ID] = struct{}{}
		fresh = append(fresh, msg)
	}
	s.transcript = append(fresh, s.transcript...)

	s.totalPages = totalPages
	s.nextPage++
	s.hasMore = s.nextPage <= totalPages
	return nil
}

// NextPage returns the page number to fetch next and whether more remain.
func (s *Session) NextPage() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextPage == 0 {
		return 1, true
	}
	return s.nextPage, s.hasMore
}

// HandleEvent routes one server-pushed event into the local state.
func (s *Session) HandleEvent(event *domain.RoomEvent) error {
	if event == nil {
		return errors.New("event is required")
	}

	switch event.Type {
	case domain.EventJoined:
		return nil
	case domain.EventNewMessage:
		msg, err := decodeMessage(event.Payload)
		if err != nil {
			return err
		}
		return s.ApplyNewMessage(msg)
	case domain.EventMessagePinned:
		raw, ok := event.Payload["pinned_message"].(map[string]any)
		if !ok {
			return errors.New("pinned_message payload missing")
		}
		msg, err := decodeMessage(raw)
		if err != nil {
			return err
		}
		return s.ApplyPinned(msg)
	case domain.EventMessageUnpinned:
		return s.ApplyUnpinned()
	case domain.EventMessageDeleted:
		idStr, _ := event.Payload["message_id"].(string)
		id, err := uuid.Parse(idStr)
		if err != nil {
			return errors.New("message_id payload missing")
		}
		return s.ApplyDeleted(id)
	case domain.EventNewPoll, domain.EventPollVoteUpdated:
		poll, err := decodePoll(event.Payload)
		if err != nil {
			return err
		}
		return s.ApplyPoll(poll)
	case domain.EventPollEnded:
		return s.ApplyPollEnded()
	case domain.EventError:
		return nil
	default:
		return nil
	}
}

// ApplyNewMessage appends a live message to the transcript.
func (s *Session) ApplyNewMessage(msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return ErrNotJoined
	}
	if _, ok := s.seen[msg.ID]; ok {
		return nil
	}
	s.seen[msg.ID] = struct{}{}
	s.transcript = append(s.transcript, msg)
	return nil
}

func (s *Session) ApplyPinned(msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return ErrNotJoined
	}
	msg.Pinned = true
	s.pinned = msg
	return nil
}

func (s *Session) ApplyUnpinned() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return ErrNotJoined
	}
	s.pinned = nil
	return nil
}

// ApplyDeleted drops the message from the transcript, from the pin slot if
// it was pinned, and from the private starred set.
func (s *Session) ApplyDeleted(messageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return ErrNotJoined
	}

	for i, msg := range s.transcript {
		if msg.ID == messageID {
			s.transcript = append(s.transcript[:i], s.transcript[i+1:]...)
			break
		}
	}
	delete(s.seen, messageID)
	if s.pinned != nil && s.pinned.ID == messageID {
		s.pinned = nil
	}
	s.stars.Unstar(s.roomKey, s.user.ID, messageID)
	return nil
}

func (s *Session) ApplyPoll(poll *domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return ErrNotJoined
	}
	s.poll = poll
	return nil
}

func (s *Session) ApplyPollEnded() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return ErrNotJoined
	}
	s.poll = nil
	return nil
}

// HasVoted reports whether this session's user already voted on the active
// poll, which is what disables the vote control.
func (s *Session) HasVoted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poll != nil && s.poll.HasVoted(s.user.ID)
}

// Star bookmarks a message locally. Stars are never visible to anyone else.
func (s *Session) Star(messageID uuid.UUID) {
	s.stars.Star(s.roomKey, s.user.ID, messageID)
}

func (s *Session) Unstar(messageID uuid.UUID) {
	s.stars.Unstar(s.roomKey, s.user.ID, messageID)
}

func (s *Session) IsStarred(messageID uuid.UUID) bool {
	return s.stars.IsStarred(s.roomKey, s.user.ID, messageID)
}

// BeginUpload marks a media upload in flight. Send must be refused until
// EndUpload, which is what prevents a slow upload from double-submitting a
// message.
func (s *Session) BeginUpload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uploading {
		return ErrUploadInFlight
	}
	s.uploading = true
	return nil
}

func (s *Session) EndUpload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploading = false
}

// CanSend reports whether the send control is enabled.
func (s *Session) CanSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateJoined && !s.uploading
}

// Transcript returns a copy of the ordered transcript.
func (s *Session) Transcript() []*domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Message(nil), s.transcript...)
}

func (s *Session) Pinned() *domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinned
}

func (s *Session) ActivePoll() *domain.Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poll
}

func decodeMessage(payload map[string]any) (*domain.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

type pollWire struct {
	ID        uuid.UUID      `json:"id"`
	RoomKey   string         `json:"room_key"`
	Question  string         `json:"question"`
	Options   []string       `json:"options"`
	Votes     []int          `json:"votes"`
	Voters    map[string]int `json:"voters"`
	CreatedBy uuid.UUID      `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
}

func decodePoll(payload map[string]any) (*domain.Poll, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var wire pollWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}

	poll := &domain.Poll{
		ID:        wire.ID,
		RoomKey:   wire.RoomKey,
		Question:  wire.Question,
		Options:   wire.Options,
		Votes:     make(map[int]int, len(wire.Votes)),
		Voters:    make(map[uuid.UUID]int, len(wire.Voters)),
		CreatedBy: wire.CreatedBy,
		CreatedAt: wire.CreatedAt,
	}
	for i, count := range wire.Votes {
		poll.Votes[i] = count
	}
	for userIDStr, option := range wire.Voters {
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			continue
		}
		poll.Voters[userID] = option
	}
	return poll, nil
}
