package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_FirstMessageThenOpen(t *testing.T) {
	ctx := context.Background()
	s := Load(ctx, "u2", NewMemoryCache())

	notify := UpsertEvent{ID: DMID("u1", "u2"), Name: "alice", IsDM: true, UnreadCandidate: true}

	snap := s.Apply(ctx, notify)
	require.Equal(t, "dm_u1_u2", snap.Channels[0].ID)
	assert.True(t, snap.Channels[0].Unread)

	snap = s.Open(ctx, "dm_u1_u2", "")
	assert.Equal(t, "dm_u1_u2", snap.ActiveID)
	assert.False(t, snap.Channels[0].Unread)
	assert.Equal(t, "alice", snap.Channels[0].Name)

	snap = s.Apply(ctx, notify)
	assert.False(t, snap.Channels[0].Unread)
	assert.Len(t, snap.Channels, 2)
}

func TestState_DeleteActiveRedirects(t *testing.T) {
	ctx := context.Background()
	s := Load(ctx, "u1", nil)

	s.Open(ctx, "dm_u1_u2", "bob")
	snap := s.Delete(ctx, "dm_u1_u2")

	assert.Equal(t, UserSearchID, snap.ActiveID)
	assert.Equal(t, []string{UserSearchID}, ids(snap.Channels))

	// deleting an inactive channel keeps the active one
	s.Open(ctx, AIID, "")
	s.Apply(ctx, UpsertEvent{ID: "dm_u1_u3", Name: "carol", IsDM: true})
	snap = s.Delete(ctx, "dm_u1_u3")
	assert.Equal(t, AIID, snap.ActiveID)
}

func TestState_ConcurrentUpsertsNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	s := Load(ctx, "me", NewMemoryCache())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			other := string(rune('a' + i%26))
			if i >= 26 {
				other += "2"
			}
			s.Apply(ctx, UpsertEvent{ID: DMID("me", other), Name: other, IsDM: true, UnreadCandidate: true})
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Channels, 51)
}

func TestState_PersistsAndReloads(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewRedisCache(client)
	ctx := context.Background()

	s := Load(ctx, "u1", cache)
	s.Apply(ctx, UpsertEvent{ID: "dm_u1_u2", Name: "bob", IsDM: true, UnreadCandidate: true})

	reloaded := Load(ctx, "u1", cache)
	snap := reloaded.Snapshot()
	assert.Equal(t, []string{"dm_u1_u2", UserSearchID}, ids(snap.Channels))
	assert.True(t, snap.Channels[0].Unread)
	// active channel is session state and is not persisted
	assert.Equal(t, UserSearchID, snap.ActiveID)
}

func TestState_CorruptCacheFallsBack(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	require.NoError(t, cache.Save(ctx, "u1", []byte(`{"not":"a list"}`)))

	s := Load(ctx, "u1", cache)
	assert.Equal(t, DefaultList(), s.Snapshot().Channels)
}

func TestState_SubscribeGetsLatest(t *testing.T) {
	ctx := context.Background()
	s := Load(ctx, "u1", nil)

	ch, cancel := s.Subscribe()
	defer cancel()

	first := <-ch
	assert.Equal(t, DefaultList(), first.Channels)

	s.Apply(ctx, UpsertEvent{ID: "dm_u1_u2", Name: "bob", IsDM: true})
	s.Apply(ctx, UpsertEvent{ID: "dm_u1_u3", Name: "carol", IsDM: true})

	select {
	case snap := <-ch:
		assert.Equal(t, "dm_u1_u3", snap.Channels[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}
