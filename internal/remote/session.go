package remote

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/liuscraft/synthea/internal/board"
	"github.com/liuscraft/synthea/internal/logging"
)

const (
	msgHello  = "hello"
	msgStatus = "status"
	msgAck    = "ack"
	msgError  = "error"
)

// request 客户端消息，如 {"action":"play","cue":"Door"}
type request struct {
	ID        string  `json:"id,omitempty"`
	Action    string  `json:"action"`
	Cue       string  `json:"cue,omitempty"`
	Seconds   float64 `json:"seconds,omitempty"`
	Axis      string  `json:"axis,omitempty"`
	Effects   bool    `json:"effects,omitempty"`
	Music     bool    `json:"music,omitempty"`
	Fade      bool    `json:"fade,omitempty"`
	Interrupt bool    `json:"interrupt,omitempty"`
}

func (r request) args() board.ActionArgs {
	return board.ActionArgs{
		Cue:       r.Cue,
		Seconds:   r.Seconds,
		Axis:      r.Axis,
		Effects:   r.Effects,
		Music:     r.Music,
		Fade:      r.Fade,
		Interrupt: r.Interrupt,
	}
}

// message 服务端消息
type message struct {
	Type     string        `json:"type"`
	ID       string        `json:"id,omitempty"`
	ClientID string        `json:"client_id,omitempty"`
	Status   *board.Status `json:"status,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// session 一个 WebSocket 客户端。状态推送只保留最新一份，慢客户端不会阻塞面板。
type session struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex

	latest chan board.Status
	done   chan struct{}
	once   sync.Once
}

func newSession(id string, conn *websocket.Conn) *session {
	return &session{
		id:     id,
		conn:   conn,
		latest: make(chan board.Status, 1),
		done:   make(chan struct{}),
	}
}

func (s *session) write(msg message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// push 由面板的状态订阅调用，替换尚未发送的旧状态
func (s *session) push(st board.Status) {
	for {
		select {
		case s.latest <- st:
			return
		default:
		}
		select {
		case <-s.latest:
		default:
		}
	}
}

func (s *session) pushLoop() {
	for {
		select {
		case <-s.done:
			return
		case st := <-s.latest:
			if err := s.write(message{Type: msgStatus, Status: &st}); err != nil {
				logging.Debugf("Remote: client %s push failed: %v", s.id, err)
				s.close()
				return
			}
		}
	}
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
