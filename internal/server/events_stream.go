package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/atlasclimate/atlas/internal/domain"
)

// ssePingInterval keeps idle SSE connections alive through proxies.
const ssePingInterval = 30 * time.Second

// handleEventsWS streams batch-progress events over a websocket. The
// connection closes cleanly when the client goes away or the bus drains.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Bus == nil {
		respondError(w, domain.Internal("event bus is not configured", nil))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch, cancel := s.deps.Bus.Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}

// handleEventsSSE streams the same events as text/event-stream for clients
// that cannot speak websocket.
func (s *Server) handleEventsSSE(w http.ResponseWriter, r *http.Request) {
	if s.deps.Bus == nil {
		respondError(w, domain.Internal("event bus is not configured", nil))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, domain.Internal("streaming unsupported by connection", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := s.deps.Bus.Subscribe()
	defer cancel()

	ping := time.NewTicker(ssePingInterval)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			body, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, body)
			flusher.Flush()
		}
	}
}
