package ws

import "sync"

// PlaybackState is the authoritative record of a watch-party room's
// current media session. Only the most recent accepted mutation is
// kept; nothing is persisted across restarts.
type PlaybackState struct {
	MediaURL        string  `json:"mediaUrl,omitempty"`
	IsPlaying       bool    `json:"isPlaying"`
	PositionSeconds float64 `json:"positionSeconds"`
}

// StateStore maps a watch-party room id to its last-known playback
// state. States are created lazily on the first mutating call and live
// as long as the process.
type StateStore struct {
	mu    sync.RWMutex
	rooms map[string]*PlaybackState
}

func NewStateStore() *StateStore {
	return &StateStore{rooms: make(map[string]*PlaybackState)}
}

func (s *StateStore) Get(roomID string) (PlaybackState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.rooms[roomID]
	if !ok {
		return PlaybackState{}, false
	}
	return *st, true
}

// SetURL starts a new session for the room: a full overwrite that
// resets playback to the start, playing.
func (s *StateStore) SetURL(roomID, url string) {
	s.mu.Lock()
	s.rooms[roomID] = &PlaybackState{MediaURL: url, IsPlaying: true}
	s.mu.Unlock()
}

// SetPlaying merges only the playing flag; every other field keeps its
// value.
func (s *StateStore) SetPlaying(roomID string, playing bool) {
	s.mu.Lock()
	s.ensure(roomID).IsPlaying = playing
	s.mu.Unlock()
}

// SetPosition merges only the position; every other field keeps its
// value.
func (s *StateStore) SetPosition(roomID string, position float64) {
	s.mu.Lock()
	s.ensure(roomID).PositionSeconds = position
	s.mu.Unlock()
}

// callers must hold s.mu
func (s *StateStore) ensure(roomID string) *PlaybackState {
	st, ok := s.rooms[roomID]
	if !ok {
		st = &PlaybackState{}
		s.rooms[roomID] = st
	}
	return st
}
