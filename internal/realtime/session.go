package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/pulseweave/internal/config"
	"github.com/phrazzld/pulseweave/internal/platform/logger"
)

// Server upgrades HTTP requests to websocket sessions
type Server struct {
	hub        *Hub
	dispatcher *Dispatcher
	config     config.RealtimeConfig
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewServer creates a websocket endpoint serving clients through hub
func NewServer(hub *Hub, dispatcher *Dispatcher, cfg config.RealtimeConfig, logger *slog.Logger) *Server {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 1 << 20
	}

	return &Server{
		hub:        hub,
		dispatcher: dispatcher,
		config:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With("component", "realtime_server"),
	}
}

// ServeHTTP upgrades the connection and blocks until the session ends
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written an HTTP error
		s.logger.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	client := s.hub.Register()
	log := s.logger.With("client_id", client.ID)
	ctx := logger.WithContext(context.WithoutCancel(r.Context()), log)

	sess := &session{
		conn:       conn,
		client:     client,
		hub:        s.hub,
		dispatcher: s.dispatcher,
		config:     s.config,
		logger:     log,
	}
	sess.run(ctx)
}

type session struct {
	conn       *websocket.Conn
	client     *Client
	hub        *Hub
	dispatcher *Dispatcher
	config     config.RealtimeConfig
	logger     *slog.Logger
}

func (s *session) run(ctx context.Context) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	s.reply(NewConnectionEstablished(s.client.ID))
	s.readLoop(ctx)

	s.hub.Unregister(s.client.ID)
	<-writerDone
	_ = s.conn.Close()
}

// readLoop handles inbound messages until the peer goes away or stays idle
// past the configured window. Messages over MaxMessageBytes are answered with
// an error and the connection stays open.
func (s *session) readLoop(ctx context.Context) {
	s.extendDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.extendDeadline()
		return nil
	})

	for {
		_, r, err := s.conn.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", "error", err)
			}
			return
		}
		s.extendDeadline()

		// at most one byte past the limit is buffered; the rest of an
		// oversized message is discarded by the next NextReader call
		raw, err := io.ReadAll(io.LimitReader(r, s.config.MaxMessageBytes+1))
		if err != nil {
			s.logger.Debug("websocket read ended", "error", err)
			return
		}
		if int64(len(raw)) > s.config.MaxMessageBytes {
			s.logger.Warn("rejecting oversized message", "limit_bytes", s.config.MaxMessageBytes)
			s.reply(NewError("message too large"))
			continue
		}

		if reply := s.dispatcher.Handle(ctx, s.client.ID, raw); reply != nil {
			s.reply(reply)
		}
	}
}

func (s *session) extendDeadline() {
	if s.config.IdleTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
	}
}

func (s *session) reply(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to encode reply", "error", err)
		return
	}
	s.hub.Deliver(s.client.ID, data)
}

// writeLoop is the only writer on the connection. It exits when the hub
// closes the client's channel or a write fails, and closes the connection
// on the way out so the read loop stops too.
func (s *session) writeLoop() {
	var ping <-chan time.Time
	if s.config.IdleTimeout > 0 {
		ticker := time.NewTicker(s.config.IdleTimeout * 9 / 10)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case msg, ok := <-s.client.Send():
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				_ = s.conn.Close()
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.fail(err)
				return
			}

		case <-ping:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.fail(err)
				return
			}
		}
	}
}

// fail closes the connection so the read loop returns and unregisters the client
func (s *session) fail(err error) {
	if !errors.Is(err, websocket.ErrCloseSent) {
		s.logger.Debug("websocket write failed", "error", err)
	}
	_ = s.conn.Close()
}
