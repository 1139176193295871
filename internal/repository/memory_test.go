package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/hostelhub/hostelchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMessages(t *testing.T, repo *InMemoryMessageRepository, roomKey string, count int) []*domain.Message {
	t.Helper()
	ctx := context.Background()

	messages := make([]*domain.Message, 0, count)
	for i := 0; i < count; i++ {
		msg := domain.NewMessage(roomKey, nil, fmt.Sprintf("message %d", i), "", "")
		require.NoError(t, repo.Save(ctx, msg))
		messages = append(messages, msg)
	}
	return messages
}

func TestPageReconstructsFullTranscript(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryMessageRepository()
	seeded := seedMessages(t, repo, "hostel:bh1", 125)

	const pageSize = 50

	_, totalPages, err := repo.Page(ctx, "hostel:bh1", 1, pageSize)
	require.NoError(t, err)
	require.Equal(t, 3, totalPages)

	// Fetch from the oldest page down to page 1, prepending each page the
	// way the client does.
	var transcript []*domain.Message
	for page := totalPages; page >= 1; page-- {
		messages, _, err := repo.Page(ctx, "hostel:bh1", page, pageSize)
		require.NoError(t, err)
		transcript = append(transcript, messages...)
	}

	require.Len(t, transcript, len(seeded))
	for i, msg := range transcript {
		assert.Equal(t, seeded[i].ID, msg.ID, "position %d", i)
	}
}

func TestPageOneIsNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryMessageRepository()
	seeded := seedMessages(t, repo, "hostel:bh1", 120)

	messages, totalPages, err := repo.Page(ctx, "hostel:bh1", 1, 50)
	require.NoError(t, err)

	assert.Equal(t, 3, totalPages)
	require.Len(t, messages, 50)
	// Oldest to newest within the page, newest message last.
	assert.Equal(t, seeded[70].ID, messages[0].ID)
	assert.Equal(t, seeded[119].ID, messages[49].ID)
}

func TestPageBeyondTotalPagesIsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryMessageRepository()
	seedMessages(t, repo, "hostel:bh1", 10)

	messages, totalPages, err := repo.Page(ctx, "hostel:bh1", 5, 50)

	require.NoError(t, err)
	assert.Equal(t, 1, totalPages)
	assert.Empty(t, messages)
}

func TestPageLastPageIsPartial(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryMessageRepository()
	seeded := seedMessages(t, repo, "hostel:bh1", 125)

	messages, _, err := repo.Page(ctx, "hostel:bh1", 3, 50)
	require.NoError(t, err)

	require.Len(t, messages, 25)
	assert.Equal(t, seeded[0].ID, messages[0].ID)
	assert.Equal(t, seeded[24].ID, messages[24].ID)
}

func TestDeleteRemovesMessage(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryMessageRepository()
	seeded := seedMessages(t, repo, "hostel:bh1", 3)

	require.NoError(t, repo.Delete(ctx, "hostel:bh1", seeded[1].ID))

	_, err := repo.GetByID(ctx, "hostel:bh1", seeded[1].ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	messages, _, err := repo.Page(ctx, "hostel:bh1", 1, 50)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestDeleteUnknownMessage(t *testing.T) {
	repo := NewInMemoryMessageRepository()

	err := repo.Delete(context.Background(), "hostel:bh1", uuid.New())

	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestProvisionTwice(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryChatRoomRepository()

	require.NoError(t, repo.Provision(ctx, "hostel:bh1", "Boys Hostel 1"))

	err := repo.Provision(ctx, "hostel:bh1", "Boys Hostel 1")
	assert.ErrorIs(t, err, ErrChatAlreadyExists)

	exists, err := repo.Exists(ctx, "hostel:bh1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "hostel:bh2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRoomStatePinRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRoomStateRepository()

	pin, err := repo.GetPin(ctx, "hostel:bh1")
	require.NoError(t, err)
	assert.Nil(t, pin)

	msg := domain.NewMessage("hostel:bh1", nil, "notice", "", "")
	require.NoError(t, repo.SavePin(ctx, "hostel:bh1", msg))

	pin, err = repo.GetPin(ctx, "hostel:bh1")
	require.NoError(t, err)
	require.NotNil(t, pin)
	assert.Equal(t, msg.ID, pin.ID)

	require.NoError(t, repo.ClearPin(ctx, "hostel:bh1"))
	pin, err = repo.GetPin(ctx, "hostel:bh1")
	require.NoError(t, err)
	assert.Nil(t, pin)
}

func TestRoomStatePollIsolatedCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRoomStateRepository()

	poll := domain.NewPoll("hostel:bh1", "Lunch?", []string{"Yes", "No"}, uuid.New())
	require.NoError(t, repo.SavePoll(ctx, poll))

	// Mutating the original must not leak into the stored copy.
	poll.RecordVote(uuid.New(), 0)

	stored, err := repo.GetPoll(ctx, "hostel:bh1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 0, stored.TotalVotes())
}
