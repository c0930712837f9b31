package channel

import (
	"context"
	"sync"

	"anoa.com/polychat/internal/logging"
	"github.com/rs/zerolog"
)

// Snapshot is a consistent view of the list and the active channel.
type Snapshot struct {
	Channels []Channel `json:"channels"`
	ActiveID string    `json:"activeId"`
}

// State owns one user's channel list and active channel. Every mutation is
// a single read-modify-write under mu, so concurrent upserts never lose
// each other's updates.
type State struct {
	userID string
	cache  Cache
	log    zerolog.Logger

	mu        sync.Mutex
	list      []Channel
	activeID  string
	nextSub   int
	listeners map[int]chan Snapshot
}

// Load seeds a State from the cache. Cache errors and malformed data fall
// back to the default list.
func Load(ctx context.Context, userID string, cache Cache) *State {
	s := &State{
		userID:    userID,
		cache:     cache,
		log:       logging.WithUser("channel", userID),
		activeID:  UserSearchID,
		listeners: make(map[int]chan Snapshot),
	}

	var raw []byte
	if cache != nil {
		var err error
		raw, err = cache.Load(ctx, userID)
		if err != nil {
			s.log.Warn().Err(err).Msg("channel cache unavailable, starting from default list")
		}
	}
	s.list = Decode(raw)
	return s
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Apply merges an upsert event against the current active channel.
func (s *State) Apply(ctx context.Context, ev UpsertEvent) Snapshot {
	return s.mutate(ctx, func() {
		s.list = Upsert(s.list, ev, s.activeID)
	})
}

// Delete removes id. Deleting the active channel sends the user back to
// user search.
func (s *State) Delete(ctx context.Context, id string) Snapshot {
	return s.mutate(ctx, func() {
		s.list = Delete(s.list, id)
		if s.activeID == id {
			s.activeID = UserSearchID
		}
	})
}

// Open makes id the active channel. A DM is moved to the front and marked
// read; name is only used when the DM is not in the list yet.
func (s *State) Open(ctx context.Context, id, name string) Snapshot {
	return s.mutate(ctx, func() {
		s.activeID = id
		if IsDM(id) {
			s.list = Upsert(s.list, UpsertEvent{ID: id, Name: name, IsDM: true}, id)
		} else {
			s.list = MarkRead(s.list, id)
		}
	})
}

// Subscribe returns a channel that always holds the latest snapshot. Slow
// readers skip intermediate snapshots.
func (s *State) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 1)
	s.listeners[id] = ch
	ch <- s.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *State) mutate(ctx context.Context, fn func()) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn()
	snap := s.snapshotLocked()
	s.persistLocked(ctx)
	for _, ch := range s.listeners {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
	return snap
}

// persistLocked writes the full list. A failed write only costs the seed
// for the next session.
func (s *State) persistLocked(ctx context.Context) {
	if s.cache == nil {
		return
	}
	data, err := Encode(s.list)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode channel list")
		return
	}
	if err := s.cache.Save(context.WithoutCancel(ctx), s.userID, data); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist channel list")
	}
}

func (s *State) snapshotLocked() Snapshot {
	list := make([]Channel, len(s.list))
	copy(list, s.list)
	return Snapshot{Channels: list, ActiveID: s.activeID}
}
