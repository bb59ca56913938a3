package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"msgcard/core/caption"
	"msgcard/core/playback"
	"msgcard/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 消息类型
const (
	MsgTypeToggle     = "toggle"
	MsgTypeSeekBy     = "seekBy"
	MsgTypeSeekTo     = "seekTo"
	MsgTypeVisibility = "visibility"
	MsgTypeMute       = "mute"
	MsgTypePing       = "ping"

	MsgTypeReady = "ready"
	MsgTypeState = "state"
	MsgTypePong  = "pong"
	MsgTypeError = "error"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	maxMessage   = 4096
	sendBuffer   = 64
)

// Message 客户端发来的指令
type Message struct {
	Type    string  `json:"type"`
	Seconds float64 `json:"seconds,omitempty"`
	Percent float64 `json:"percent,omitempty"`
	Hidden  bool    `json:"hidden,omitempty"`
	Mute    string  `json:"mute,omitempty"`
}

// Frame 服务端推送的消息
type Frame struct {
	Type      string               `json:"type"`
	SessionID string               `json:"sessionId,omitempty"`
	Card      *model.MessageRecord `json:"card,omitempty"`
	Captions  caption.Timeline     `json:"captions,omitempty"`
	State     *playback.Snapshot   `json:"state,omitempty"`
	Error     string               `json:"error,omitempty"`
	Timestamp int64                `json:"timestamp,omitempty"`
}

// Session 一个 websocket 连接对应一个播放器
type Session struct {
	ID     string
	player *Player
	conn   *websocket.Conn
	send   chan []byte
	log    *zap.Logger
}

// New 创建会话，Run 结束时会关闭 conn 和 player
func New(conn *websocket.Conn, player *Player, log *zap.Logger) *Session {
	id := uuid.New().String()
	if log == nil {
		log = player.log
	}
	return &Session{
		ID:     id,
		player: player,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		log:    log.With(zap.String("session", id), zap.String("card", player.Record.ID)),
	}
}

// Run 推送初始状态并处理消息，直到连接断开或 ctx 结束
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.push(s.readyFrame())
	unsubscribe := s.player.Core.OnChange(func(snap playback.Snapshot) {
		s.push(&Frame{Type: MsgTypeState, State: &snap})
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump(ctx)
	}()

	s.log.Info("preview session started")
	s.readPump(ctx)

	unsubscribe()
	cancel()
	wg.Wait()
	s.conn.Close()
	s.player.Close()
	s.log.Info("preview session closed")
}

func (s *Session) readyFrame() *Frame {
	snap := s.player.Core.Snapshot()
	return &Frame{
		Type:      MsgTypeReady,
		SessionID: s.ID,
		Card:      s.player.Record,
		Captions:  s.player.Core.Timeline(),
		State:     &snap,
	}
}

// Handle 执行一条指令，返回需要单独回复给客户端的消息
func (s *Session) Handle(msg *Message) (*Frame, error) {
	core := s.player.Core
	switch msg.Type {
	case MsgTypeToggle:
		core.ToggleUserInteraction()
	case MsgTypeSeekBy:
		core.SeekBy(msg.Seconds)
	case MsgTypeSeekTo:
		core.SeekToPercent(msg.Percent)
	case MsgTypeVisibility:
		core.SetHidden(msg.Hidden)
	case MsgTypeMute:
		m, err := playback.ParseMuteSetting(msg.Mute)
		if err != nil {
			return nil, err
		}
		core.SetMute(m)
	case MsgTypePing:
		return &Frame{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil, nil
}

func (s *Session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(maxMessage)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for ctx.Err() == nil {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("invalid message format", zap.Error(err))
			s.push(&Frame{Type: MsgTypeError, Error: "invalid message format"})
			continue
		}

		reply, err := s.Handle(&msg)
		if err != nil {
			s.push(&Frame{Type: MsgTypeError, Error: err.Error()})
			continue
		}
		if reply != nil {
			s.push(reply)
		}
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Debug("websocket write failed", zap.Error(err))
				s.conn.Close()
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				return
			}
		}
	}
}

// push 发送队列满时丢弃，客户端以下一帧状态为准
func (s *Session) push(f *Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		s.log.Error("failed to marshal frame", zap.String("type", f.Type), zap.Error(err))
		return
	}
	select {
	case s.send <- data:
	default:
		s.log.Debug("send buffer full, frame dropped", zap.String("type", f.Type))
	}
}
