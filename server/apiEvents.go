package server

import (
	"net/http"
	"time"

	"github.com/cyclopcam/firewatch/server/monitor"
	"github.com/julienschmidt/httprouter"
)

// SYNC-EVENT-MESSAGE
type eventMessage struct {
	Type  string                  `json:"type"` // frame, confirmed or ping
	Frame *monitor.FrameResult    `json:"frame,omitempty"`
	Event *monitor.ConfirmedEvent `json:"event,omitempty"`
}

// Stream every frame result and confirmed event over a websocket, until the client goes away.
// Add "?frames=0" to receive only confirmed events.
func (s *Server) httpEventsWebSocket(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	wantFrames := r.URL.Query().Get("frames") != "0"

	// Watch before upgrading, so that nothing is missed between the handshake and the first read
	events := s.monitor.AddEventWatcher()
	defer s.monitor.RemoveEventWatcher(events)
	var frames chan *monitor.FrameResult
	if wantFrames {
		frames = s.monitor.AddWatcher()
		defer s.monitor.RemoveWatcher(frames)
	}

	c, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Errorf("httpEventsWebSocket websocket upgrade failed: %v", err)
		return
	}
	defer c.Close()

	// We never expect messages from the client, but we need to read in order to notice that it has closed
	closed := make(chan bool)
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				close(closed)
				return
			}
		}
	}()

	s.Log.Infof("httpEventsWebSocket starting (frames: %v)", wantFrames)
	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()
	for {
		var msg eventMessage
		select {
		case <-closed:
			s.Log.Infof("httpEventsWebSocket client closed")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			msg = eventMessage{Type: "confirmed", Event: ev}
		case fr, ok := <-frames:
			if !ok {
				return
			}
			msg = eventMessage{Type: "frame", Frame: fr}
		case <-keepAlive.C:
			msg = eventMessage{Type: "ping"}
		}
		if err := c.WriteJSON(&msg); err != nil {
			s.Log.Infof("httpEventsWebSocket write failed: %v", err)
			return
		}
	}
}
