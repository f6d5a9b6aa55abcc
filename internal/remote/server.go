// Package remote 通过 HTTP/WebSocket 暴露面板：远程触发动作、推送状态以及 /metrics。
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/liuscraft/synthea/internal/board"
	"github.com/liuscraft/synthea/internal/logging"
	"github.com/liuscraft/synthea/internal/observe"
)

const (
	writeTimeout    = 5 * time.Second
	shutdownTimeout = 3 * time.Second
)

// Controller 远程端依赖的面板能力，*board.Controller 满足该接口
type Controller interface {
	Dispatch(a board.Action) error
	Status() board.Status
	Subscribe(h func(board.Status)) func()
}

type Config struct {
	ListenAddr string
	// Metrics 为 true 时在同一端口提供 /metrics
	Metrics bool
}

// Server 远程控制服务
type Server struct {
	cfg      Config
	ctl      Controller
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
}

func New(cfg Config, ctl Controller) *Server {
	return &Server{
		cfg: cfg,
		ctl: ctl,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}
}

// Handler 返回路由：/ws、/status，以及可选的 /metrics
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/status", s.handleStatus)
	if s.cfg.Metrics {
		mux.Handle("/metrics", observe.Handler())
	}
	return mux
}

// Run 监听并服务，直到 ctx 结束
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve 在给定的监听器上服务，直到 ctx 结束
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logging.Infof("Remote: listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.closeSessions()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown remote: %w", err)
	}
	return nil
}

// Sessions 当前连接的客户端数
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.ctl.Status()); err != nil {
		logging.Warnf("Remote: encode status: %v", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("Remote: upgrade failed: %v", err)
		return
	}

	sess := newSession(uuid.NewString(), conn)
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	logging.Infof("Remote: client %s connected from %s", sess.id, r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		sess.close()
		logging.Infof("Remote: client %s disconnected", sess.id)
	}()

	if err := sess.write(message{Type: msgHello, ClientID: sess.id}); err != nil {
		return
	}
	st := s.ctl.Status()
	if err := sess.write(message{Type: msgStatus, Status: &st}); err != nil {
		return
	}

	unsubscribe := s.ctl.Subscribe(sess.push)
	defer unsubscribe()
	go sess.pushLoop()

	s.readLoop(sess)
}

func (s *Server) readLoop(sess *session) {
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debugf("Remote: client %s read error: %v", sess.id, err)
			}
			return
		}

		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			_ = sess.write(message{Type: msgError, Error: fmt.Sprintf("invalid message: %v", err)})
			continue
		}
		if err := s.handleRequest(req); err != nil {
			logging.Debugf("Remote: client %s action %q failed: %v", sess.id, req.Action, err)
			_ = sess.write(message{Type: msgError, ID: req.ID, Error: err.Error()})
			continue
		}
		_ = sess.write(message{Type: msgAck, ID: req.ID})
	}
}

func (s *Server) handleRequest(req request) error {
	action, err := board.ParseAction(req.Action, req.args())
	if err != nil {
		return err
	}
	logging.Debugf("Remote: dispatching %s", action)
	return s.ctl.Dispatch(action)
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
}
