package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/pictalk/internal/dialogue"
	"github.com/MrWong99/pictalk/internal/observe"
)

// Inbound WebSocket message types.
const (
	msgTurn   = "turn"
	msgGame   = "game"
	msgDrill  = "drill"
	msgLogout = "logout"
)

// wsMessage is a client message on /v1/ws. Type defaults to "turn".
type wsMessage struct {
	Type     string        `json:"type,omitempty"`
	Text     string        `json:"text,omitempty"`
	Role     dialogue.Role `json:"role,omitempty"`
	Category string        `json:"category,omitempty"`
}

// wsReply is the server message answering a wsMessage. Exactly one of
// Response and Error is set; a logout is acknowledged with neither.
type wsReply struct {
	Type     string             `json:"type"`
	Response *dialogue.Response `json:"response,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// handleWS upgrades to a WebSocket bound to one user. Messages are answered
// in order; the connection closes on a logout message or when the client
// goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("api: websocket upgrade failed", "user", user, "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxJSONBytes)

	ctx := r.Context()
	log := observe.Logger(ctx).With("user", user)
	log.Debug("api: websocket opened")

	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if closed(err) {
				log.Debug("api: websocket closed")
				return
			}
			log.Warn("api: websocket read failed", "err", err)
			conn.Close(websocket.StatusUnsupportedData, "invalid message")
			return
		}
		reply, done := s.dispatch(ctx, user, msg)
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			if !closed(err) {
				log.Warn("api: websocket write failed", "err", err)
			}
			return
		}
		if done {
			conn.Close(websocket.StatusNormalClosure, "logged out")
			return
		}
	}
}

// dispatch answers one message. done reports that the session ended.
func (s *Server) dispatch(ctx context.Context, user string, msg wsMessage) (reply wsReply, done bool) {
	typ := msg.Type
	if typ == "" {
		typ = msgTurn
	}
	reply.Type = typ

	var resp dialogue.Response
	switch typ {
	case msgTurn:
		resp = s.svc.Turn(ctx, dialogue.Request{User: user, Role: msg.Role, Text: msg.Text})
	case msgGame:
		resp = s.svc.StartGame(ctx, user, msg.Category)
	case msgDrill:
		resp = s.svc.StartDrill(ctx, user, msg.Category)
	case msgLogout:
		s.svc.Logout(user)
		return reply, true
	default:
		reply.Error = "unknown message type " + typ
		return reply, false
	}
	reply.Response = &resp
	return reply, false
}

func closed(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
