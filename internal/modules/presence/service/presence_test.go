package presence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"anoa.com/polychat/internal/entity"
	"anoa.com/polychat/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOnline(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	assert.False(t, IsOnline(nil, now))
	assert.True(t, IsOnline(at(0), now))
	assert.True(t, IsOnline(at(299_999*time.Millisecond), now))
	assert.False(t, IsOnline(at(300_000*time.Millisecond), now))
	assert.False(t, IsOnline(at(time.Hour), now))
}

func TestChannelOnline(t *testing.T) {
	now := time.Now()
	stale := now.Add(-time.Hour)

	assert.True(t, ChannelOnline("ai", "u1", nil, now))
	assert.True(t, ChannelOnline("notebook", "u1", nil, now))
	assert.True(t, ChannelOnline("user-search", "u1", nil, now))
	assert.True(t, ChannelOnline("lobby", "u1", &stale, now))
	assert.False(t, ChannelOnline("dm_u1_u2", "u1", &stale, now))
	assert.False(t, ChannelOnline("dm_u1_u2", "u1", nil, now))
	assert.True(t, ChannelOnline("dm_u1_u2", "u1", &now, now))
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func next(t *testing.T, ch <-chan Status) Status {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok)
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status")
	}
	return Status{}
}

func TestTracker_FollowsPartnerHeartbeat(t *testing.T) {
	broker := realtime.NewMemoryBroker()
	stale := time.Now().Add(-time.Hour)
	users := &fakeUsers{users: map[string]*entity.User{"u2": {ID: "u2", LastActive: &stale}}}

	tr := NewTracker(users, broker, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	statuses, err := tr.Watch(ctx, "dm_u1_u2", "u1")
	require.NoError(t, err)
	assert.False(t, next(t, statuses).Online)

	fresh := time.Now()
	change, err := realtime.NewChange(realtime.Modified, realtime.UserTopic("u2"), "u2", entity.User{ID: "u2", LastActive: &fresh})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, change))

	assert.True(t, next(t, statuses).Online)
}

func TestTracker_VirtualChannelAlwaysOnline(t *testing.T) {
	tr := NewTracker(&fakeUsers{}, realtime.NewMemoryBroker(), 0)

	statuses, err := tr.Watch(context.Background(), "ai", "u1")
	require.NoError(t, err)

	assert.True(t, next(t, statuses).Online)
	_, ok := <-statuses
	assert.False(t, ok)
}

type countingBeater struct{ n atomic.Int32 }

func (c *countingBeater) Heartbeat(context.Context, string) error {
	c.n.Add(1)
	return nil
}

func TestRunHeartbeat_BeatsImmediatelyAndOnTick(t *testing.T) {
	hb := &countingBeater{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunHeartbeat(ctx, hb, "u1", 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return hb.n.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
