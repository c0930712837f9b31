package session

import (
	"context"
	"sync"
	"time"

	"anoa.com/polychat/internal/logging"
	channel "anoa.com/polychat/internal/modules/channel/service"
	mailboxRepo "anoa.com/polychat/internal/modules/mailbox/repository"
	mailbox "anoa.com/polychat/internal/modules/mailbox/service"
	presence "anoa.com/polychat/internal/modules/presence/service"
	"anoa.com/polychat/internal/realtime"
	"github.com/rs/zerolog"
)

// Users is what a session needs to know about people.
type Users interface {
	mailbox.NameResolver
	presence.Heartbeater
	presence.UserFinder
}

// Hub keeps at most one running session per user. Sessions are reference
// counted: the first Acquire starts the mailbox consumer and the heartbeat,
// the last release stops them.
type Hub struct {
	cache     channel.Cache
	mailbox   mailboxRepo.Repository
	broker    realtime.Broker
	users     Users
	heartbeat time.Duration
	log       zerolog.Logger

	base     context.Context
	shutdown context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
	// states holds the one channel list per user shared by live and
	// detached sessions.
	states map[string]*channel.State
}

func NewHub(cache channel.Cache, mailbox mailboxRepo.Repository, broker realtime.Broker, users Users, heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = time.Minute
	}
	base, shutdown := context.WithCancel(context.Background())
	return &Hub{
		cache:     cache,
		mailbox:   mailbox,
		broker:    broker,
		users:     users,
		heartbeat: heartbeat,
		log:       logging.Component("session"),
		base:      base,
		shutdown:  shutdown,
		sessions:  make(map[string]*Session),
		states:    make(map[string]*channel.State),
	}
}

// Acquire returns the running session of userID, starting it if needed.
// The returned release func must be called exactly once.
func (h *Hub) Acquire(ctx context.Context, userID string) (*Session, func()) {
	state := h.state(ctx, userID)

	h.mu.Lock()
	sess, ok := h.sessions[userID]
	if !ok {
		sess = h.newSession(userID, state)
		h.sessions[userID] = sess
		h.start(sess)
	}
	sess.refs++
	h.mu.Unlock()

	var once sync.Once
	return sess, func() {
		once.Do(func() { h.release(sess) })
	}
}

// Session returns the running session of userID. Without a live
// connection it returns a detached session over the user's channel list,
// after applying the notifications that are waiting in the mailbox.
func (h *Hub) Session(ctx context.Context, userID string) *Session {
	h.mu.Lock()
	sess, ok := h.sessions[userID]
	h.mu.Unlock()
	if ok {
		return sess
	}

	sess = h.newSession(userID, h.state(ctx, userID))
	consumer := mailbox.NewConsumer(h.mailbox, h.broker, h.users, sess.state, userID)
	if err := consumer.Drain(ctx); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("failed to drain mailbox")
	}
	return sess
}

// Active reports how many sessions are running.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close stops every session and waits for them.
func (h *Hub) Close() {
	h.shutdown()

	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for id, sess := range h.sessions {
		sessions = append(sessions, sess)
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	for _, sess := range sessions {
		sess.stop()
	}
}

// state returns the channel list of userID, loading it from the cache on
// first use. The cache is read outside mu; a concurrent loader that
// finishes first wins.
func (h *Hub) state(ctx context.Context, userID string) *channel.State {
	h.mu.Lock()
	state, ok := h.states[userID]
	h.mu.Unlock()
	if ok {
		return state
	}

	loaded := channel.Load(ctx, userID, h.cache)

	h.mu.Lock()
	defer h.mu.Unlock()
	if state, ok := h.states[userID]; ok {
		return state
	}
	h.states[userID] = loaded
	return loaded
}

func (h *Hub) newSession(userID string, state *channel.State) *Session {
	return &Session{
		userID: userID,
		state:  state,
		users:  h.users,
	}
}

func (h *Hub) start(sess *Session) {
	ctx, cancel := context.WithCancel(h.base)
	sess.cancel = cancel

	consumer := mailbox.NewConsumer(h.mailbox, h.broker, h.users, sess.state, sess.userID)
	sess.wg.Add(2)
	go func() {
		defer sess.wg.Done()
		if err := consumer.Run(ctx); err != nil {
			h.log.Error().Err(err).Str("user_id", sess.userID).Msg("mailbox consumer stopped")
		}
	}()
	go func() {
		defer sess.wg.Done()
		presence.RunHeartbeat(ctx, h.users, sess.userID, h.heartbeat)
	}()

	h.log.Debug().Str("user_id", sess.userID).Msg("session started")
}

func (h *Hub) release(sess *Session) {
	h.mu.Lock()
	sess.refs--
	last := sess.refs == 0
	if last && h.sessions[sess.userID] == sess {
		delete(h.sessions, sess.userID)
	}
	h.mu.Unlock()

	if last {
		sess.stop()
		h.log.Debug().Str("user_id", sess.userID).Msg("session stopped")
	}
}
