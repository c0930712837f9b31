package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anoa.com/polychat/internal/ai"
	"anoa.com/polychat/internal/entity"
	channel "anoa.com/polychat/internal/modules/channel/service"
	mailboxRepo "anoa.com/polychat/internal/modules/mailbox/repository"
	mailbox "anoa.com/polychat/internal/modules/mailbox/service"
	messageRepo "anoa.com/polychat/internal/modules/message/repository"
	message "anoa.com/polychat/internal/modules/message/service"
	presence "anoa.com/polychat/internal/modules/presence/service"
	"anoa.com/polychat/internal/modules/session/dto"
	session "anoa.com/polychat/internal/modules/session/service"
	"anoa.com/polychat/internal/realtime"
	"anoa.com/polychat/pkg/apperror"
	"anoa.com/polychat/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	anaID = "0b6f3a52-3d1e-4c4f-9a3a-6f0c1d2e3f40"
	bobID = "7e2d9c10-5b8a-4f6e-8d21-9a4b3c2d1e0f"
)

type users map[string]*entity.User

func (u users) FindByID(_ context.Context, id string) (*entity.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, apperror.ErrNotFound
}

func (u users) ResolveDisplayName(ctx context.Context, id string) (string, error) {
	user, err := u.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.DisplayName, nil
}

func (u users) Heartbeat(context.Context, string) error { return nil }

type silentAI struct {
	ai.TextService
}

type wsFixture struct {
	server   *httptest.Server
	hub      *session.Hub
	messages  messageRepo.Repository
	mailboxes mailboxRepo.Repository
	broker    *realtime.MemoryBroker
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, entity.All()...))

	now := time.Now()
	people := users{
		anaID: {ID: anaID, DisplayName: "ana", LastActive: &now},
		bobID: {ID: bobID, DisplayName: "bob", LastActive: &now},
	}
	broker := realtime.NewMemoryBroker()
	mailboxes := mailboxRepo.NewRepository(db)
	messages := messageRepo.NewRepository(db)

	hub := session.NewHub(channel.NewMemoryCache(), mailboxes, broker, people, time.Hour)
	messageService := message.NewService(messages, broker, people, silentAI{}, mailbox.NewNotifier(mailboxes, broker), message.Options{})
	tracker := presence.NewTracker(people, broker, presence.Window)

	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set("user_id", c.Query("as"))
	})
	api.GET("/ws", NewWebSocketHandler(hub, messageService, tracker).HandleWebSocket)
	NewChannelHandler(hub).RegisterRoutes(api.Group("/channels"))

	f := &wsFixture{server: httptest.NewServer(r), hub: hub, messages: messages, mailboxes: mailboxes, broker: broker}
	t.Cleanup(func() {
		f.server.Close()
		hub.Close()
	})
	return f
}

func (f *wsFixture) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/ws?as=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type rawFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readUntil skips frames until one of frameType arrives and accept approves it.
func readUntil(t *testing.T, conn *websocket.Conn, frameType string, accept func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var frame rawFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == frameType && (accept == nil || accept(frame.Data)) {
			return frame.Data
		}
	}
}

func activeIs(id string) func(json.RawMessage) bool {
	return func(data json.RawMessage) bool {
		var snap channel.Snapshot
		return json.Unmarshal(data, &snap) == nil && snap.ActiveID == id
	}
}

func TestWebSocket_InitialFrames(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, anaID)

	var snap channel.Snapshot
	require.NoError(t, json.Unmarshal(readUntil(t, conn, dto.FrameChannels, nil), &snap))
	assert.Equal(t, channel.UserSearchID, snap.ActiveID)
	assert.Equal(t, channel.DefaultList(), snap.Channels)

	var status presence.Status
	require.NoError(t, json.Unmarshal(readUntil(t, conn, dto.FramePresence, nil), &status))
	assert.True(t, status.Online)
	assert.Equal(t, 1, f.hub.Active())
}

func TestWebSocket_StartDMStreamsHistoryAndPresence(t *testing.T) {
	f := newWSFixture(t)
	dm := channel.DMID(anaID, bobID)
	require.NoError(t, f.messages.Create(context.Background(), &entity.Message{ChannelKey: dm, Text: "hola", UserID: bobID}))

	conn := f.dial(t, anaID)
	readUntil(t, conn, dto.FrameChannels, nil)

	require.NoError(t, conn.WriteJSON(dto.Command{Type: dto.CommandStartDM, UserID: bobID}))
	readUntil(t, conn, dto.FrameChannels, activeIs(dm))

	var page message.Page
	require.NoError(t, json.Unmarshal(readUntil(t, conn, dto.FrameHistory, nil), &page))
	assert.Equal(t, dm, page.ChannelID)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "hola", page.Messages[0].Text)
	assert.True(t, page.AutoScroll)

	require.NoError(t, conn.WriteJSON(dto.Command{Type: dto.CommandLoadMore}))
	require.NoError(t, json.Unmarshal(readUntil(t, conn, dto.FrameHistory, nil), &page))
	assert.Equal(t, 40, page.WindowSize)
	assert.False(t, page.AutoScroll)
}

func TestWebSocket_CommandErrors(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, anaID)
	readUntil(t, conn, dto.FrameChannels, nil)

	require.NoError(t, conn.WriteJSON(dto.Command{Type: dto.CommandStartDM, UserID: anaID}))
	var frame dto.ErrorFrame
	require.NoError(t, json.Unmarshal(readUntil(t, conn, dto.FrameError, nil), &frame))
	assert.Equal(t, dto.CommandStartDM, frame.Command)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	readUntil(t, conn, dto.FrameError, nil)
}

func TestWebSocket_ReleasesSessionOnClose(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, anaID)
	readUntil(t, conn, dto.FrameChannels, nil)
	require.Equal(t, 1, f.hub.Active())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.hub.Active() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestChannelRoutes(t *testing.T) {
	f := newWSFixture(t)
	dm := channel.DMID(anaID, bobID)

	post := func(path, body string) *http.Response {
		resp, err := http.Post(f.server.URL+path+"?as="+anaID, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := post("/api/channels/dm", `{"userId":"`+bobID+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap channel.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, dm, snap.Channels[0].ID)

	resp = post("/api/channels/dm", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post("/api/channels/"+channel.AIID+"/open", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, f.server.URL+"/api/channels/"+dm+"?as="+anaID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	listResp, err := http.Get(f.server.URL + "/api/channels?as=" + anaID)
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&snap))
	assert.Equal(t, channel.DefaultList(), snap.Channels)
}

func TestChannelRoutes_ListIncludesOfflineNotifications(t *testing.T) {
	f := newWSFixture(t)
	require.NoError(t, mailbox.NewNotifier(f.mailboxes, f.broker).Notify(context.Background(), anaID, bobID))

	resp, err := http.Get(f.server.URL + "/api/channels?as=" + bobID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap channel.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.NotEmpty(t, snap.Channels)
	assert.Equal(t, channel.Channel{ID: channel.DMID(anaID, bobID), Name: "ana", IsDM: true, Unread: true}, snap.Channels[0])
}
