package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/voicevision/voicevision/session"
)

const (
	streamWriteWait = 10 * time.Second
	streamMaxChunk  = 1 << 20
)

type streamCommand struct {
	Action string `json:"action"`
}

type streamReply struct {
	Status *session.RecorderStatus `json:"status,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// handleRecorderStream takes recorder chunks over a websocket. Binary
// messages are audio in the ?mime= type; text messages are JSON commands
// ({"action":"pause"}) for the same state machine as the HTTP actions.
// Every message is answered with the recorder status.
func (s *Server) handleRecorderStream(w http.ResponseWriter, r *http.Request) {
	mimeType := r.URL.Query().Get("mime")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(streamMaxChunk)

	log := s.log.WithFields(logrus.Fields{
		"session":    SessionIDFromContext(r.Context()),
		"request_id": RequestIDFromContext(r.Context()),
	})
	log.Debug("recorder stream opened")

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("recorder stream closed")
			}
			return
		}

		var st *session.State
		switch kind {
		case websocket.BinaryMessage:
			st, err = s.appendChunk(r, msg, mimeType)
		case websocket.TextMessage:
			var cmd streamCommand
			if jerr := json.Unmarshal(msg, &cmd); jerr != nil {
				err = errBadRequest
				break
			}
			st, err = s.update(r, func(st *session.State) error {
				now := s.now()
				switch cmd.Action {
				case "pause":
					return st.Recorder.Pause(now)
				case "resume":
					return st.Recorder.Resume(now)
				case "stop":
					return st.Recorder.Stop(now)
				case "status":
					st.Recorder.Tick(now)
					return nil
				}
				return errBadRequest
			})
		default:
			continue
		}

		reply := streamReply{}
		if err != nil {
			reply.Error = err.Error()
			if errors.Is(err, session.ErrInvalidTransition) {
				// the capture may have auto-stopped; report where it is
				st, _ = s.state(r)
			}
		}
		if st != nil {
			status := st.Recorder.Status(s.now())
			reply.Status = &status
		}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			log.WithError(err).Debug("recorder stream write failed")
			return
		}
	}
}
