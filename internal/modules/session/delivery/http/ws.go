package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"anoa.com/polychat/internal/logging"
	message "anoa.com/polychat/internal/modules/message/service"
	presence "anoa.com/polychat/internal/modules/presence/service"
	"anoa.com/polychat/internal/modules/session/dto"
	session "anoa.com/polychat/internal/modules/session/service"
	"anoa.com/polychat/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type WebSocketHandler struct {
	hub      *session.Hub
	messages message.Service
	tracker  *presence.Tracker
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWebSocketHandler(hub *session.Hub, messages message.Service, tracker *presence.Tracker) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		messages: messages,
		tracker:  tracker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: logging.Component("ws"),
	}
}

// view follows the active channel: its history window and its presence.
type view struct {
	active   string
	cancel   context.CancelFunc
	feed     *message.HistoryFeed
	pages    chan message.Page
	statuses chan presence.Status
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to upgrade websocket")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sess, release := h.hub.Acquire(ctx, userID)
	defer release()

	snapshots, unsubscribe := sess.State().Subscribe()
	defer unsubscribe()

	log := logging.WithUser("ws", userID)

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	commands := make(chan dto.Command)
	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd dto.Command
			if err := json.Unmarshal(raw, &cmd); err != nil {
				cmd = dto.Command{Type: "malformed"}
			}
			select {
			case commands <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()

	v := &view{
		pages:    make(chan message.Page),
		statuses: make(chan presence.Status),
	}
	defer func() {
		if v.cancel != nil {
			v.cancel()
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	write := func(frameType string, data any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(dto.Frame{Type: frameType, Data: data}); err != nil {
			log.Debug().Err(err).Msg("failed to write frame")
			return false
		}
		return true
	}

	for {
		select {
		case snap := <-snapshots:
			if !write(dto.FrameChannels, snap) {
				return
			}
			if snap.ActiveID != v.active {
				h.follow(ctx, sess, v, snap.ActiveID)
			}
		case page := <-v.pages:
			if page.ChannelID == v.active && !write(dto.FrameHistory, page) {
				return
			}
		case status := <-v.statuses:
			if status.ChannelID == v.active && !write(dto.FramePresence, status) {
				return
			}
		case cmd := <-commands:
			if err := h.execute(ctx, sess, v, cmd); err != nil {
				if !write(dto.FrameError, dto.ErrorFrame{Command: cmd.Type, Message: err.Error()}) {
					return
				}
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}

// follow points the view at channelID, stopping the previous feeds.
func (h *WebSocketHandler) follow(ctx context.Context, sess *session.Session, v *view, channelID string) {
	if v.cancel != nil {
		v.cancel()
	}
	watchCtx, cancel := context.WithCancel(ctx)
	v.active = channelID
	v.cancel = cancel
	v.feed = nil

	log := logging.WithUser("ws", sess.UserID())

	if feed, err := h.messages.Feed(sess.UserID(), channelID); err == nil {
		v.feed = feed
		go func() {
			if err := feed.Run(watchCtx, v.pages); err != nil {
				log.Warn().Err(err).Str("channel_id", channelID).Msg("history feed stopped")
			}
		}()
	}

	statuses, err := h.tracker.Watch(watchCtx, channelID, sess.UserID())
	if err != nil {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("presence unavailable")
		return
	}
	go func() {
		for status := range statuses {
			select {
			case v.statuses <- status:
			case <-watchCtx.Done():
				return
			}
		}
	}()
}

func (h *WebSocketHandler) execute(ctx context.Context, sess *session.Session, v *view, cmd dto.Command) error {
	var err error
	switch cmd.Type {
	case dto.CommandOpen:
		_, err = sess.Open(ctx, cmd.ChannelID)
	case dto.CommandStartDM:
		_, err = sess.StartDM(ctx, cmd.UserID)
	case dto.CommandDelete:
		_, err = sess.Delete(ctx, cmd.ChannelID)
	case dto.CommandLoadMore:
		if v.feed != nil {
			v.feed.LoadMore()
		}
	case dto.CommandResetAI:
		err = h.messages.ResetAI(ctx, sess.UserID())
	default:
		err = fmt.Errorf("unknown command %q", cmd.Type)
	}
	return err
}
