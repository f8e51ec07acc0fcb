package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/killallgit/route-planner-api/internal/services/search"
	routeplanner "github.com/killallgit/route-planner-api/internal/services/planner"
	apperrors "github.com/killallgit/route-planner-api/pkg/errors"
)

var errUnknownMessage = errors.New("unknown message type")

const lookupFailedMessage = "No pudimos buscar ese lugar, intenta de nuevo"

// Session is one connected planner client
type Session struct {
	ID string

	conn     *websocket.Conn
	modal    *routeplanner.Modal
	settings Settings
	log      *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id string, conn *websocket.Conn, settings Settings, log *slog.Logger) *Session {
	return &Session{
		ID:       id,
		conn:     conn,
		settings: settings,
		log:      log.With("session_id", id),
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// run blocks until the client goes away, then unmounts the modal
func (s *Session) run(ctx context.Context) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump()
	}()

	s.push(MsgModal, s.modal.View())
	s.readPump(ctx)

	s.modal.Shutdown()
	close(s.done)
	<-writerDone
}

func (s *Session) readPump(ctx context.Context) {
	defer func() { _ = s.conn.Close() }()

	s.conn.SetReadLimit(s.settings.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.settings.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.settings.PongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn("websocket read failed", "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.push(MsgError, ErrorData{Message: "invalid message"})
			continue
		}

		if field, err := s.handle(ctx, env); err != nil {
			s.log.Debug("message rejected", "type", env.Type, "error", err)
			s.push(MsgError, ErrorData{Field: field, Message: err.Error()})
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.settings.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.settings.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.settings.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.settings.WriteWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handle applies one client message to the modal. The returned field names
// the input an error belongs to, if any.
func (s *Session) handle(ctx context.Context, env Envelope) (routeplanner.Field, error) {
	switch env.Type {
	case MsgOpen:
		if err := s.modal.Show(); err != nil {
			return "", err
		}
		for _, field := range []routeplanner.Field{routeplanner.FieldFrom, routeplanner.FieldTo} {
			if st, err := s.modal.InputState(field); err == nil {
				s.push(MsgState, StateData{Field: field, State: st})
			}
		}
		return "", nil

	case MsgClose:
		s.modal.Close()
		return "", nil

	case MsgQuery:
		var d QueryData
		if err := decode(env.Data, &d); err != nil {
			return "", err
		}
		return d.Field, s.modal.Query(d.Field, d.Text)

	case MsgSelect:
		var d SelectData
		if err := decode(env.Data, &d); err != nil {
			return "", err
		}
		_, err := s.modal.Select(d.Field, d.ID)
		return d.Field, err

	case MsgCommit:
		var d CommitData
		if err := decode(env.Data, &d); err != nil {
			return "", err
		}
		return d.Field, s.modal.Commit(d.Field)

	case MsgCategory:
		var d CategoryData
		if err := decode(env.Data, &d); err != nil {
			return "", err
		}
		if d.Value == nil {
			return "", errors.New("category value is required")
		}
		return "", s.modal.SetCategory(*d.Value)

	case MsgSearch:
		id, err := s.modal.SearchRoute(ctx)
		if errors.Is(err, routeplanner.ErrIncompleteSelection) {
			// the modal has already warned
			return "", nil
		}
		if err != nil {
			return "", errors.New(userMessage(err, "route search failed"))
		}
		s.push(MsgRouteSearch, RouteSearchData{ID: id})
		return "", nil

	case MsgToggleResults:
		s.modal.ToggleResults()
		return "", nil

	default:
		return "", fmt.Errorf("%w: %q", errUnknownMessage, env.Type)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("message data is required")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid message data: %w", err)
	}
	return nil
}

// userMessage keeps internal error detail off the wire
func userMessage(err error, fallback string) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	return fallback
}

// Modal callbacks. They run on modal goroutines and only queue messages.

func (s *Session) onView(v routeplanner.View) {
	s.push(MsgModal, v)
}

func (s *Session) onInputState(field routeplanner.Field, st search.State) {
	s.push(MsgState, StateData{Field: field, State: st})
}

func (s *Session) onInputError(field routeplanner.Field, err error) {
	s.push(MsgError, ErrorData{Field: field, Message: lookupFailedMessage})
}

func (s *Session) onSelection(sel routeplanner.Selection) {
	s.push(MsgSelection, SelectionData{Selection: sel})
}

func (s *Session) onWarning(message string) {
	s.push(MsgWarning, WarningData{Message: message})
}

// push queues a message for the writer. A full queue drops the message
// rather than stalling the modal.
func (s *Session) push(msgType string, data any) {
	msg, err := json.Marshal(outgoing{Type: msgType, Data: data})
	if err != nil {
		s.log.Error("failed to encode message", "type", msgType, "error", err)
		return
	}

	select {
	case <-s.done:
	case s.send <- msg:
	default:
		s.log.Warn("send queue full, dropping message", "type", msgType)
	}
}

func (s *Session) closeConn(code int, reason string) {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(s.settings.WriteWait)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = s.conn.Close()
	})
}
