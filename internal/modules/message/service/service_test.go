package message

import (
	"context"
	"errors"
	"testing"
	"time"

	"anoa.com/polychat/internal/ai"
	"anoa.com/polychat/internal/entity"
	"anoa.com/polychat/internal/modules/message/dto"
	"anoa.com/polychat/internal/realtime"
	"anoa.com/polychat/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]*entity.User

func (f fakeUsers) FindByID(_ context.Context, id string) (*entity.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apperror.ErrNotFound
}

func newService(t *testing.T) (Service, *fakeAI, *realtime.MemoryBroker) {
	t.Helper()
	users := fakeUsers{
		"u1": {ID: "u1", DisplayName: "ana", NativeLang: entity.English, TargetLang: "French"},
	}
	textService := &fakeAI{reply: ai.Reply{English: "Hello!", Target: "Salut !"}}
	broker := realtime.NewMemoryBroker()
	svc := NewService(newMessageRepo(t), broker, users, textService, &fakeNotifier{}, Options{PageSize: 20, AITimeout: time.Second})
	return svc, textService, broker
}

func TestService_SendFillsUserFields(t *testing.T) {
	svc, _, _ := newService(t)

	res, err := svc.Send(context.Background(), "u1", "dm_u1_u2", dto.SendMessageRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "ana", res.Message.DisplayName)
	assert.Equal(t, "French", res.Message.Lang)
	assert.Equal(t, "fr-FR", res.Message.LangCode)
	assert.Equal(t, "[French] hello", res.Message.Text)
}

func TestService_SendUnknownUser(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Send(context.Background(), "ghost", "ai", dto.SendMessageRequest{Text: "hello"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestService_HistoryAndReset(t *testing.T) {
	svc, _, broker := newService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "u1", "ai", dto.SendMessageRequest{Text: "Bonjour", Mode: "target"})
	require.NoError(t, err)

	hist, err := svc.History(ctx, "u1", "ai", 0)
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	assert.False(t, hist.Messages[0].IsBot)
	assert.True(t, hist.Messages[1].IsBot)
	assert.True(t, hist.AutoScroll)

	changes, unsubscribe, err := broker.Subscribe(ctx, realtime.MessagesTopic("ai:u1"))
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, svc.ResetAI(ctx, "u1"))
	select {
	case change := <-changes:
		assert.Equal(t, realtime.Removed, change.Kind)
	case <-time.After(time.Second):
		t.Fatal("reset not published")
	}

	hist, err = svc.History(ctx, "u1", "ai", 0)
	require.NoError(t, err)
	assert.Empty(t, hist.Messages)
}

func TestService_FeedRejectsVirtualChannels(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Feed("u1", "notebook")
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))

	feed, err := svc.Feed("u1", "ai")
	require.NoError(t, err)
	assert.Equal(t, "ai", feed.ChannelID())
}
