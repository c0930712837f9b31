package message

import (
	"context"
	"sync"

	"anoa.com/polychat/internal/entity"
	repo "anoa.com/polychat/internal/modules/message/repository"
	"anoa.com/polychat/internal/realtime"
)

// DefaultPageSize is both the initial window and the growth step.
const DefaultPageSize = 20

// Window is the number of newest messages a history view shows. It only grows.
type Window struct {
	mu   sync.Mutex
	size int
	step int
}

func NewWindow(step int) *Window {
	if step <= 0 {
		step = DefaultPageSize
	}
	return &Window{size: step, step: step}
}

func (w *Window) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Grow widens the window by one page and returns the new size.
func (w *Window) Grow() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.size += w.step
	return w.size
}

// AutoScroll reports whether the view should stick to the newest message,
// which holds only until the user pages back.
func (w *Window) AutoScroll() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size == w.step
}

// Page is one rendering of a history window, oldest message first.
type Page struct {
	ChannelID  string           `json:"channelId"`
	Messages   []entity.Message `json:"messages"`
	WindowSize int              `json:"windowSize"`
	AutoScroll bool             `json:"autoScroll"`
}

func loadPage(ctx context.Context, messages repo.Repository, channelID, key string, size int, autoScroll bool) (Page, error) {
	newest, err := messages.Latest(ctx, key, size)
	if err != nil {
		return Page{}, err
	}
	asc := make([]entity.Message, len(newest))
	for i, m := range newest {
		asc[len(newest)-1-i] = m
	}
	return Page{ChannelID: channelID, Messages: asc, WindowSize: size, AutoScroll: autoScroll}, nil
}

// HistoryFeed keeps a history window in sync with the channel's topic. Every
// change on the topic re-queries with the current window size.
type HistoryFeed struct {
	repo      repo.Repository
	broker    realtime.Broker
	channelID string
	key       string
	window    *Window
	more      chan struct{}
}

func NewHistoryFeed(messages repo.Repository, broker realtime.Broker, channelID, key string, pageSize int) *HistoryFeed {
	return &HistoryFeed{
		repo:      messages,
		broker:    broker,
		channelID: channelID,
		key:       key,
		window:    NewWindow(pageSize),
		more:      make(chan struct{}, 1),
	}
}

func (f *HistoryFeed) ChannelID() string {
	return f.channelID
}

// LoadMore asks the running feed to widen the window. Requests made while
// one is pending coalesce.
func (f *HistoryFeed) LoadMore() {
	select {
	case f.more <- struct{}{}:
	default:
	}
}

// Run emits pages on out until ctx is done. The subscription is opened
// before the first query so no message written in between is missed.
func (f *HistoryFeed) Run(ctx context.Context, out chan<- Page) error {
	changes, cancel, err := f.broker.Subscribe(ctx, realtime.MessagesTopic(f.key))
	if err != nil {
		return err
	}
	defer cancel()

	emit := func() error {
		page, err := loadPage(ctx, f.repo, f.channelID, f.key, f.window.Size(), f.window.AutoScroll())
		if err != nil {
			return err
		}
		select {
		case out <- page:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := emit(); err != nil {
		return ignoreCanceled(ctx, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
		case <-f.more:
			f.window.Grow()
		}
		if err := emit(); err != nil {
			return ignoreCanceled(ctx, err)
		}
	}
}

func ignoreCanceled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}
