package httpapi

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// handleStream upgrades to a websocket and pushes each signal of the channel
// as a JSON text frame, taking it from the queue as it is sent.
func (s *Server) handleStream(c *gin.Context) {
	name := c.Param("channel")
	if _, err := s.router.Kind(name); err != nil {
		s.writeError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", "channel", name, "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("stream opened", "channel", name, "client_ip", c.ClientIP())
	s.stream(conn, name)
	s.logger.Info("stream closed", "channel", name, "client_ip", c.ClientIP())
}

func (s *Server) stream(conn *websocket.Conn, name string) {
	// The feed is push-only; reading detects the peer going away and
	// services control frames.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	poll := time.NewTicker(s.cfg.StreamInterval)
	defer poll.Stop()
	ping := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()

	for {
		// A signal taken after the peer left would be lost.
		select {
		case <-gone:
			return
		default:
		}
		if err := s.drain(conn, name, gone); err != nil {
			s.logger.Warn("stream write failed", "channel", name, "error", err)
			return
		}

		select {
		case <-s.done:
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second),
			)
			return
		case <-gone:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				s.logger.Debug("failed to send ping", "channel", name, "error", err)
				return
			}
		case <-poll.C:
		}
	}
}

// drain sends every pending signal of the channel, stopping without taking
// another once gone is closed.
func (s *Server) drain(conn *websocket.Conn, name string, gone <-chan struct{}) error {
	for {
		select {
		case <-gone:
			return nil
		default:
		}
		sig, ok, err := s.router.TakeNext(name)
		if err != nil || !ok {
			return err
		}
		data, err := json.Marshal(sig.ToWire())
		if err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
}
