package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Poll is the single ephemeral vote a room may run at a time. Tallies and
// voter choices live in memory for the poll's lifetime; once the creator
// closes it only the announcement message survives.
type Poll struct {
	ID        uuid.UUID         `json:"id"`
	RoomKey   string            `json:"room_key"`
	Question  string            `json:"question"`
	Options   []string          `json:"options"`
	Votes     map[int]int       `json:"votes"`
	Voters    map[uuid.UUID]int `json:"voters"`
	CreatedBy uuid.UUID         `json:"created_by"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewPoll(roomKey string, question string, options []string, createdBy uuid.UUID) *Poll {
	votes := make(map[int]int, len(options))
	for i := range options {
		votes[i] = 0
	}
	return &Poll{
		ID:        uuid.New(),
		RoomKey:   roomKey,
		Question:  question,
		Options:   options,
		Votes:     votes,
		Voters:    make(map[uuid.UUID]int),
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
}

// HasVoted reports whether the user already cast a vote. A recorded vote is
// immutable for the poll's lifetime.
func (p *Poll) HasVoted(userID uuid.UUID) bool {
	_, ok := p.Voters[userID]
	return ok
}

// RecordVote stores the user's choice and bumps the option tally. The caller
// is responsible for the already-voted and range checks.
func (p *Poll) RecordVote(userID uuid.UUID, optionIndex int) {
	p.Voters[userID] = optionIndex
	p.Votes[optionIndex]++
}

// RevokeVote undoes a recorded vote, restoring the tally. No-op when the
// user never voted.
func (p *Poll) RevokeVote(userID uuid.UUID) {
	optionIndex, ok := p.Voters[userID]
	if !ok {
		return
	}
	delete(p.Voters, userID)
	p.Votes[optionIndex]--
}

// TotalVotes returns the number of votes cast so far.
func (p *Poll) TotalVotes() int {
	total := 0
	for _, count := range p.Votes {
		total += count
	}
	return total
}

// Percentages returns the rounded share of the total per option, index
// aligned with Options. With zero votes every option reports 0.
func (p *Poll) Percentages() []int {
	out := make([]int, len(p.Options))
	total := p.TotalVotes()
	if total == 0 {
		return out
	}
	for i := range p.Options {
		out[i] = int(math.Round(float64(p.Votes[i]) / float64(total) * 100))
	}
	return out
}

// Winners returns the option indexes holding the highest raw vote count.
// Ties produce multiple winners.
func (p *Poll) Winners() []int {
	best := -1
	for i := range p.Options {
		if p.Votes[i] > best {
			best = p.Votes[i]
		}
	}
	winners := make([]int, 0, 1)
	for i := range p.Options {
		if p.Votes[i] == best {
			winners = append(winners, i)
		}
	}
	return winners
}
