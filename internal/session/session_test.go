package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hostelhub/hostelchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionRoom = "hostel:bh1"

func newJoinedSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(sessionRoom, domain.NewUser("alice", domain.RoleStudent, "BH1"), nil)
	require.NoError(t, s.BeginJoin())
	require.NoError(t, s.CompleteJoin(nil, nil))
	return s
}

func textMessage(text string) *domain.Message {
	return &domain.Message{
		ID:        uuid.New(),
		RoomKey:   sessionRoom,
		SenderID:  uuid.New(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

func transcriptTexts(s *Session) []string {
	msgs := s.Transcript()
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func TestJoinStateMachine(t *testing.T) {
	s := NewSession(sessionRoom, domain.NewUser("alice", domain.RoleStudent, "BH1"), nil)
	assert.Equal(t, StateDisconnected, s.State())
	assert.False(t, s.CanSend())

	require.NoError(t, s.BeginJoin())
	assert.Equal(t, StateJoining, s.State())
	assert.ErrorIs(t, s.BeginJoin(), ErrAlreadyJoining)

	require.NoError(t, s.CompleteJoin(nil, nil))
	assert.Equal(t, StateJoined, s.State())
	assert.True(t, s.CanSend())

	s.Disconnect()
	assert.Equal(t, StateDisconnected, s.State())
	assert.ErrorIs(t, s.ApplyNewMessage(textMessage("late")), ErrNotJoined)
}

func TestHistoryPrependsLiveAppends(t *testing.T) {
	s := newJoinedSession(t)

	// A live message lands before any history page arrives.
	require.NoError(t, s.ApplyNewMessage(textMessage("live-1")))

	// Page 1 is the newest stored page; page 2 is older and lands after,
	// yet must end up in front.
	require.NoError(t, s.ApplyHistoryPage([]*domain.Message{
		textMessage("old-3"), textMessage("old-4"),
	}, 2))
	require.NoError(t, s.ApplyHistoryPage([]*domain.Message{
		textMessage("old-1"), textMessage("old-2"),
	}, 2))

	require.NoError(t, s.ApplyNewMessage(textMessage("live-2")))

	assert.Equal(t,
		[]string{"old-1", "old-2", "old-3", "old-4", "live-1", "live-2"},
		transcriptTexts(s))
}

func TestHistoryCursorAndHasMore(t *testing.T) {
	s := newJoinedSession(t)

	page, more := s.NextPage()
	assert.Equal(t, 1, page)
	assert.True(t, more)

	require.NoError(t, s.ApplyHistoryPage([]*domain.Message{textMessage("a")}, 2))
	page, more = s.NextPage()
	assert.Equal(t, 2, page)
	assert.True(t, more)

	require.NoError(t, s.ApplyHistoryPage([]*domain.Message{textMessage("b")}, 2))
	_, more = s.NextPage()
	assert.False(t, more, "cursor exhausted after the last page")
}

func TestHistoryPageDeduplicatesLiveOverlap(t *testing.T) {
	s := newJoinedSession(t)

	overlap := textMessage("overlap")
	require.NoError(t, s.ApplyNewMessage(overlap))

	// The newest page can contain a message already delivered live.
	require.NoError(t, s.ApplyHistoryPage([]*domain.Message{
		textMessage("older"), overlap,
	}, 1))

	assert.Equal(t, []string{"older", "overlap"}, transcriptTexts(s))
}

func TestRejoinResetsTranscript(t *testing.T) {
	s := newJoinedSession(t)
	require.NoError(t, s.ApplyNewMessage(textMessage("before-drop")))
	s.Disconnect()

	pinned := textMessage("the pin")
	require.NoError(t, s.BeginJoin())
	require.NoError(t, s.CompleteJoin(pinned, nil))

	assert.Empty(t, s.Transcript(), "history is re-fetched after reconnect")
	require.NotNil(t, s.Pinned())
	assert.Equal(t, pinned.ID, s.Pinned().ID)

	page, more := s.NextPage()
	assert.Equal(t, 1, page)
	assert.True(t, more)
}

func TestUnpinnedIsIdempotent(t *testing.T) {
	s := newJoinedSession(t)

	first := textMessage("first pin")
	second := textMessage("second pin")
	require.NoError(t, s.ApplyPinned(first))
	require.NoError(t, s.ApplyPinned(second))
	assert.Equal(t, second.ID, s.Pinned().ID)

	require.NoError(t, s.ApplyUnpinned())
	assert.Nil(t, s.Pinned())

	// A stale duplicate unpin changes nothing.
	require.NoError(t, s.ApplyUnpinned())
	assert.Nil(t, s.Pinned())
}

func TestDeletedRemovesMessagePinAndStar(t *testing.T) {
	s := newJoinedSession(t)

	msg := textMessage("doomed")
	require.NoError(t, s.ApplyNewMessage(msg))
	require.NoError(t, s.ApplyPinned(msg))
	s.Star(msg.ID)
	require.True(t, s.IsStarred(msg.ID))

	require.NoError(t, s.ApplyDeleted(msg.ID))

	assert.Empty(t, s.Transcript())
	assert.Nil(t, s.Pinned())
	assert.False(t, s.IsStarred(msg.ID), "stars never point at deleted messages")

	// Replaying the delete is a no-op.
	require.NoError(t, s.ApplyDeleted(msg.ID))
	assert.Empty(t, s.Transcript())
}

func TestHandleEventDecodesWirePayloads(t *testing.T) {
	s := newJoinedSession(t)

	msgID := uuid.New()
	senderID := uuid.New()
	require.NoError(t, s.HandleEvent(&domain.RoomEvent{
		Type: domain.EventNewMessage,
		Payload: map[string]any{
			"id":          msgID.String(),
			"room_key":    sessionRoom,
			"sender_id":   senderID.String(),
			"sender_name": "bob",
			"text":        "hello",
			"created_at":  time.Now().UTC().Format(time.RFC3339Nano),
		},
	}))
	require.Len(t, s.Transcript(), 1)
	assert.Equal(t, msgID, s.Transcript()[0].ID)

	pollID := uuid.New()
	require.NoError(t, s.HandleEvent(&domain.RoomEvent{
		Type: domain.EventNewPoll,
		Payload: map[string]any{
			"id":         pollID.String(),
			"room_key":   sessionRoom,
			"question":   "Lunch?",
			"options":    []string{"Yes", "No"},
			"votes":      []int{0, 0},
			"voters":     map[string]int{},
			"created_by": senderID.String(),
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}))
	poll := s.ActivePoll()
	require.NotNil(t, poll)
	assert.Equal(t, pollID, poll.ID)
	assert.Equal(t, []string{"Yes", "No"}, poll.Options)

	voterID := s.user.ID
	require.NoError(t, s.HandleEvent(&domain.RoomEvent{
		Type: domain.EventPollVoteUpdated,
		Payload: map[string]any{
			"id":         pollID.String(),
			"room_key":   sessionRoom,
			"question":   "Lunch?",
			"options":    []string{"Yes", "No"},
			"votes":      []int{1, 0},
			"voters":     map[string]int{voterID.String(): 0},
			"created_by": senderID.String(),
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}))
	assert.True(t, s.HasVoted())

	require.NoError(t, s.HandleEvent(&domain.RoomEvent{Type: domain.EventPollEnded}))
	assert.Nil(t, s.ActivePoll())
	assert.False(t, s.HasVoted())
}

func TestHandleEventRejectsMalformedPayloads(t *testing.T) {
	s := newJoinedSession(t)

	err := s.HandleEvent(&domain.RoomEvent{
		Type:    domain.EventMessagePinned,
		Payload: map[string]any{"message_id": uuid.New().String()},
	})
	assert.Error(t, err, "pinned event without the message body is rejected")

	err = s.HandleEvent(&domain.RoomEvent{
		Type:    domain.EventMessageDeleted,
		Payload: map[string]any{"message_id": "not-a-uuid"},
	})
	assert.Error(t, err)
}

func TestStateMutationsRequireJoined(t *testing.T) {
	s := newJoinedSession(t)
	msg := textMessage("kept")
	require.NoError(t, s.ApplyNewMessage(msg))
	require.NoError(t, s.ApplyPinned(msg))
	s.Disconnect()

	// While disconnected the cached pin and transcript are placeholders;
	// stray events must not touch them.
	assert.ErrorIs(t, s.ApplyUnpinned(), ErrNotJoined)
	assert.ErrorIs(t, s.ApplyDeleted(msg.ID), ErrNotJoined)
	assert.ErrorIs(t, s.ApplyPinned(textMessage("other")), ErrNotJoined)
	poll := domain.NewPoll(sessionRoom, "Lunch?", []string{"Yes", "No"}, uuid.New())
	assert.ErrorIs(t, s.ApplyPoll(poll), ErrNotJoined)
	assert.ErrorIs(t, s.ApplyPollEnded(), ErrNotJoined)

	require.NotNil(t, s.Pinned())
	assert.Equal(t, msg.ID, s.Pinned().ID)
	assert.Len(t, s.Transcript(), 1)
	assert.Nil(t, s.ActivePoll())
}

func TestUploadBlocksSend(t *testing.T) {
	s := newJoinedSession(t)

	require.NoError(t, s.BeginUpload())
	assert.False(t, s.CanSend(), "send stays disabled while an upload runs")
	assert.ErrorIs(t, s.BeginUpload(), ErrUploadInFlight)

	s.EndUpload()
	assert.True(t, s.CanSend())
}

func TestStarsAreScopedPerUserAndRoom(t *testing.T) {
	stars := NewStarStore("")
	alice := domain.NewUser("alice", domain.RoleStudent, "BH1")
	bob := domain.NewUser("bob", domain.RoleStudent, "BH1")

	sa := NewSession(sessionRoom, alice, stars)
	sb := NewSession(sessionRoom, bob, stars)

	msgID := uuid.New()
	sa.Star(msgID)

	assert.True(t, sa.IsStarred(msgID))
	assert.False(t, sb.IsStarred(msgID), "stars are private to the user")

	sa.Unstar(msgID)
	assert.False(t, sa.IsStarred(msgID))
}

func TestStarStorePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stars.json")
	userID := uuid.New()
	msgID := uuid.New()

	stars := NewStarStore(path)
	stars.Star(sessionRoom, userID, msgID)

	reloaded := NewStarStore(path)
	assert.True(t, reloaded.IsStarred(sessionRoom, userID, msgID))
	assert.ElementsMatch(t, []uuid.UUID{msgID}, reloaded.List(sessionRoom, userID))
}
