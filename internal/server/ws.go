package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-propform/pkg/orchestrator"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/session"
	"github.com/goliatone/go-propform/pkg/visibility"
)

// ClientMessage is the envelope for client-to-server websocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // open, set, switch, count, add, remove, confirm, revoke, export, ping
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is the envelope for server-to-client websocket messages.
type ServerMessage struct {
	Type      string `json:"type"` // session, state, export, error, pong
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// StateData describes the session after every change.
type StateData struct {
	SessionID    string                     `json:"sessionId"`
	ActiveDomain int                        `json:"activeDomain"`
	Domains      []DomainData               `json:"domains"`
	Hidden       []string                   `json:"hidden"`
	Empty        []visibility.EmptyCategory `json:"empty,omitempty"`
	Pending      []session.Pending          `json:"pending"`
	Values       schema.Values              `json:"values"`
}

type DomainData struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ExportData struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type setData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type switchData struct {
	Domain int `json:"domain"`
}

type countData struct {
	Count int `json:"count"`
}

type exportRequest struct {
	Format string `json:"format"`
}

type liveSession struct {
	id     string
	sess   *session.Session
	conn   *websocket.Conn
	logger zerolog.Logger
}

func (s *Server) handleLiveSession(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	if s.metrics != nil {
		s.metrics.SessionOpened()
		defer s.metrics.SessionClosed()
	}

	ctx := r.Context()
	live := &liveSession{
		id:     uuid.NewString(),
		conn:   conn,
		logger: zerolog.Ctx(ctx).With().Str("component", "ws").Logger(),
	}
	live.logger = live.logger.With().Str("session_id", live.id).Logger()

	if s.defaultSchema != nil {
		sess, err := s.orch.Open(ctx, orchestrator.Request{Document: s.defaultSchema})
		if err != nil {
			live.sendError(ctx, "", "open_error", err.Error())
			conn.Close(websocket.StatusInternalError, "open session")
			return
		}
		live.sess = sess
	}
	live.send(ctx, ServerMessage{Type: "session", Data: live.state()})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				live.logger.Debug().Int("status", int(status)).Msg("connection closed")
			}
			return
		}
		s.handleMessage(ctx, live, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, live *liveSession, msg ClientMessage) {
	switch msg.Type {
	case "ping":
		live.send(ctx, ServerMessage{Type: "pong", RequestID: msg.ID})
		return
	case "open":
		var req sessionRequest
		if err := decodeData(msg.Data, &req); err != nil {
			live.sendError(ctx, msg.ID, "invalid_data", err.Error())
			return
		}
		sess, err := s.openSession(ctx, req)
		if err != nil {
			live.sendError(ctx, msg.ID, "open_error", err.Error())
			return
		}
		live.sess = sess
		live.send(ctx, ServerMessage{Type: "state", RequestID: msg.ID, Data: live.state()})
		return
	}

	if live.sess == nil {
		live.sendError(ctx, msg.ID, "no_session", "send an open message first")
		return
	}

	var err error
	switch msg.Type {
	case "set":
		var data setData
		if err = decodeData(msg.Data, &data); err == nil {
			_, err = live.sess.Set(data.Key, data.Value)
		}
	case "switch":
		var data switchData
		if err = decodeData(msg.Data, &data); err == nil {
			_, err = live.sess.SwitchDomain(data.Domain)
		}
	case "count":
		var data countData
		if err = decodeData(msg.Data, &data); err == nil {
			_, err = live.sess.SetDomainCount(data.Count)
		}
	case "add":
		_, err = live.sess.AddDomain()
	case "remove":
		_, err = live.sess.RemoveDomain()
	case "confirm":
		var data setData
		if err = decodeData(msg.Data, &data); err == nil {
			err = live.sess.Confirm(data.Key, data.Value)
		}
	case "revoke":
		var data setData
		if err = decodeData(msg.Data, &data); err == nil {
			err = live.sess.Revoke(data.Key)
		}
	case "export":
		s.handleExport(ctx, live, msg)
		return
	default:
		live.sendError(ctx, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		return
	}

	if err != nil {
		live.sendError(ctx, msg.ID, msg.Type+"_error", err.Error())
		return
	}
	live.send(ctx, ServerMessage{Type: "state", RequestID: msg.ID, Data: live.state()})
}

func (s *Server) handleExport(ctx context.Context, live *liveSession, msg ClientMessage) {
	var req exportRequest
	if err := decodeData(msg.Data, &req); err != nil {
		live.sendError(ctx, msg.ID, "invalid_data", err.Error())
		return
	}
	if req.Format == "" {
		req.Format = "properties"
	}

	var (
		content []byte
		err     error
	)
	switch req.Format {
	case "properties":
		var buf bytes.Buffer
		err = live.sess.ExportProperties(&buf)
		if s.metrics != nil {
			s.metrics.CodecOperation("encode", err)
		}
		content = buf.Bytes()
	case "json":
		content, err = live.sess.ExportJSON()
	case "values":
		content, err = live.sess.ExportValues()
	default:
		live.sendError(ctx, msg.ID, "invalid_data", "unknown export format: "+req.Format)
		return
	}
	if err != nil {
		live.sendError(ctx, msg.ID, "export_error", err.Error())
		return
	}
	live.send(ctx, ServerMessage{
		Type:      "export",
		RequestID: msg.ID,
		Data:      ExportData{Format: req.Format, Content: string(content)},
	})
}

func (l *liveSession) state() StateData {
	data := StateData{SessionID: l.id, Hidden: []string{}, Pending: []session.Pending{}}
	if l.sess == nil {
		return data
	}
	state := l.sess.State()
	data.ActiveDomain = l.sess.ActiveDomain()
	for _, d := range l.sess.Domains() {
		data.Domains = append(data.Domains, DomainData{ID: d.ID, Name: d.Name})
	}
	data.Hidden = append(data.Hidden, state.Hidden()...)
	sort.Strings(data.Hidden)
	data.Empty = state.Empty
	if pending, err := l.sess.Unconfirmed(); err == nil && pending != nil {
		data.Pending = pending
	}
	data.Values = l.sess.Values()
	return data
}

func (l *liveSession) send(ctx context.Context, msg ServerMessage) {
	if err := wsjson.Write(ctx, l.conn, msg); err != nil {
		l.logger.Debug().Err(err).Msg("write")
	}
}

func (l *liveSession) sendError(ctx context.Context, requestID, code, message string) {
	l.send(ctx, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}

func decodeData(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
