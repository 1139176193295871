package domain

// Event types issued by clients.
const (
	EventSendMessage   = "send-message"
	EventPinMessage    = "pin-message"
	EventUnpinMessage  = "unpin-message"
	EventDeleteMessage = "delete-message"
	EventCreatePoll    = "create-poll"
	EventVotePoll      = "vote-poll"
	EventEndPoll       = "end-poll"
	EventLeave         = "leave"
)

// Event types pushed to clients.
const (
	EventJoined          = "joined"
	EventNewMessage      = "new-message"
	EventMessagePinned   = "message-pinned"
	EventMessageUnpinned = "message-unpinned"
	EventMessageDeleted  = "message-deleted"
	EventNewPoll         = "new-poll"
	EventPollVoteUpdated = "poll-vote-updated"
	EventPollEnded       = "poll-ended"
	EventError           = "error"
)

// RoomEvent is the envelope travelling over the websocket in both
// directions.
type RoomEvent struct {
	Type     string         `json:"type"`
	Room     string         `json:"room,omitempty"`
	SenderID string         `json:"sender_id,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}
