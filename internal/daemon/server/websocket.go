package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/inbox/pkg/api"
	"github.com/grovetools/inbox/pkg/visibility"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// upgrader accepts same-origin pages, clients that send no Origin (the
// CLI, scripts), and the origins configured with SetAllowedOrigins.
func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	s.originsMu.RLock()
	defer s.originsMu.RUnlock()
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	s.logger.WithField("origin", origin).Debug("Rejected websocket origin")
	return false
}

// handleWebSocket serves browser consumers. The server pushes an
// api.Counts message on connect and after every settled update; the client
// may send api.Visibility messages to pause or resume polling.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	svc := s.engine.Inbox()
	ch := svc.Subscribe()
	defer svc.Unsubscribe(ch)

	// Only the reader goroutine touches the tracker; it asks the writer
	// loop to push fresh counts when visibility changes.
	changed := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg api.Visibility
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			state, err := visibility.Parse(string(msg.State))
			if err != nil || s.visibility == nil {
				continue
			}
			if s.visibility.Set(state) {
				s.logger.WithField("state", state).Info("Visibility changed")
				select {
				case changed <- struct{}{}:
				default:
				}
			}
		}
	}()

	send := func() bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(s.counts()) == nil
	}

	s.logger.Debug("WebSocket client connected")
	if !send() {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			s.logger.Debug("WebSocket client disconnected")
			return
		case _, ok := <-ch:
			if !ok || !send() {
				return
			}
		case <-changed:
			if !send() {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
