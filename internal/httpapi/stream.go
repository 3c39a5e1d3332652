package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"posync/internal/domain"
	"posync/internal/state"
)

// Stream message types sent on /api/stream.
const (
	StreamSnapshot = "snapshot"
	StreamChange   = "change"
)

const (
	streamBuffer       = 64
	streamWriteTimeout = 5 * time.Second
)

// handleStream upgrades to a WebSocket, sends the current snapshot, then
// pushes a change message after every aggregate update. Each message is a
// domain.Envelope. Slow clients miss intermediate changes; every change
// carries a full snapshot so the next one catches them up.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn("stream upgrade failed", "error", err)
		return
	}
	defer c.CloseNow()

	subID, ch := s.state.Watch(streamBuffer)
	defer s.state.Unwatch(subID)
	s.log.Info("stream client subscribed", "subID", subID)

	// Inbound frames are not expected; CloseRead handles close and ping.
	ctx := c.CloseRead(r.Context())

	if err := s.push(ctx, c, StreamSnapshot, state.Change{Snapshot: s.state.Snapshot()}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			s.log.Info("stream client disconnected", "subID", subID)
			return
		case change, ok := <-ch:
			if !ok {
				c.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := s.push(ctx, c, StreamChange, change); err != nil {
				s.log.Debug("stream write failed", "subID", subID, "error", err)
				return
			}
		}
	}
}

func (s *Server) push(ctx context.Context, c *websocket.Conn, msgType string, change state.Change) error {
	env, err := domain.NewEnvelope(msgType, change, s.now())
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return c.Write(wctx, websocket.MessageText, data)
}
