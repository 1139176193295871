package session

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"
)

// StarStore is the device-local bookmark store. Stars are private to the
// (room, user) pair that created them: nothing here ever travels to the
// server or to other participants, and stores on different devices are never
// merged.
type StarStore struct {
	mu   sync.Mutex
	path string
	// scope key "roomKey|userID" -> starred message ids
	stars map[string]map[uuid.UUID]struct{}
}

// NewStarStore creates a store. With a non-empty path the store persists to
// a JSON file, the local-storage analog of the web client; an empty path
// keeps stars in memory only.
func NewStarStore(path string) *StarStore {
	s := &StarStore{
		path:  path,
		stars: make(map[string]map[uuid.UUID]struct{}),
	}
	s.load()
	return s
}

func scopeKey(roomKey string, userID uuid.UUID) string {
	return roomKey + "|" + userID.String()
}

func (s *StarStore) Star(roomKey string, userID uuid.UUID, messageID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scopeKey(roomKey, userID)
	if s.stars[key] == nil {
		s.stars[key] = make(map[uuid.UUID]struct{})
	}
	s.stars[key][messageID] = struct{}{}
	s.save()
}

func (s *StarStore) Unstar(roomKey string, userID uuid.UUID, messageID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.stars[scopeKey(roomKey, userID)], messageID)
	s.save()
}

func (s *StarStore) IsStarred(roomKey string, userID uuid.UUID, messageID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.stars[scopeKey(roomKey, userID)][messageID]
	return ok
}

func (s *StarStore) List(roomKey string, userID uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.stars[scopeKey(roomKey, userID)]
	out := make([]uuid.UUID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	return out
}

func (s *StarStore) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	raw := make(map[string][]uuid.UUID)
	if err := json.Unmarshal(data, &raw); err != nil {
		return
	}
	for key, ids := range raw {
		set := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		s.stars[key] = set
	}
}

func (s *StarStore) save() {
	if s.path == "" {
		return
	}

	raw := make(map[string][]uuid.UUID, len(s.stars))
	for key, ids := range s.stars {
		list := make([]uuid.UUID, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		raw[key] = list
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o600)
}
