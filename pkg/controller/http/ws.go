package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/hearth-archive/hearth/pkg/usecase"
	"github.com/hearth-archive/hearth/pkg/utils/errutil"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/hearth-archive/hearth/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// Client frame types
const (
	frameAuthenticate = "authenticate"
	frameAcknowledge  = "acknowledge"
	framePing         = "ping"
)

// clientFrame is any frame sent by a device
type clientFrame struct {
	Type       string           `json:"type"`
	Role       types.Role       `json:"role,omitempty"`
	DeliveryID model.DeliveryID `json:"delivery_id,omitempty"`
	Action     string           `json:"action,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type acknowledgedFrame struct {
	Type       string               `json:"type"`
	DeliveryID model.DeliveryID     `json:"delivery_id"`
	Status     types.DeliveryStatus `json:"status"`
}

type pongFrame struct {
	Type string `json:"type"`
}

// wsConn adapts a websocket connection to the hub. Only the hub writer
// goroutine calls WriteJSON after authentication.
type wsConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

func (c *wsConn) WriteJSON(v any) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return goerr.Wrap(err, "failed to set write deadline")
	}
	if err := c.conn.WriteJSON(v); err != nil {
		return goerr.Wrap(err, "failed to write websocket frame")
	}
	return nil
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		logging.From(r.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}
	ws := &wsConn{conn: conn}
	conn.SetReadLimit(maxMessageSize)

	ctx := context.WithoutCancel(r.Context())
	role, err := s.authenticate(conn)
	if err != nil {
		logging.From(ctx).Warn("websocket authentication failed", "error", err)
		_ = ws.WriteJSON(&errorFrame{Type: "error", Error: err.Error()})
		safe.Close(ctx, ws)
		return
	}

	client, err := s.uc.Delivery.Connect(ctx, ws, role)
	if err != nil {
		_ = ws.WriteJSON(&errorFrame{Type: "error", Error: err.Error()})
		safe.Close(ctx, ws)
		return
	}
	ctx = logging.With(ctx, logging.From(ctx).With("client_id", client.ID, "role", role))
	defer s.uc.Delivery.Disconnect(ctx, client.ID)

	s.readLoop(ctx, conn, client)
}

// authenticate waits for the first frame, which must declare the role
func (s *Server) authenticate(conn *websocket.Conn) (types.Role, error) {
	if err := conn.SetReadDeadline(time.Now().Add(s.authTimeout)); err != nil {
		return "", goerr.Wrap(err, "failed to set read deadline")
	}

	var frame clientFrame
	if err := conn.ReadJSON(&frame); err != nil {
		return "", goerr.Wrap(err, "failed to read authenticate frame")
	}
	if frame.Type != frameAuthenticate {
		return "", goerr.Wrap(usecase.ErrInvalidRequest, "first frame must authenticate", goerr.V("type", frame.Type))
	}
	if !frame.Role.IsValid() {
		return "", goerr.Wrap(usecase.ErrInvalidRole, "unknown role", goerr.V("role", frame.Role))
	}
	return frame.Role, nil
}

// readLoop handles client frames until the connection fails. Server pings
// keep the read deadline moving for idle clients.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, client *model.ConnectedClient) {
	readWait := 2 * s.pingInterval
	extend := func() {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
	}
	extend()
	conn.SetPongHandler(func(string) error {
		extend()
		_ = s.uc.Delivery.Touch(client.ID)
		return nil
	})

	stop := make(chan struct{})
	defer close(stop)
	go s.pingLoop(conn, stop)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.From(ctx).Warn("websocket closed unexpectedly", "error", err)
			}
			return
		}
		extend()

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.reply(ctx, client.ID, &errorFrame{Type: "error", Error: "malformed frame"})
			continue
		}
		s.handleFrame(ctx, client, &frame)
	}
}

func (s *Server) handleFrame(ctx context.Context, client *model.ConnectedClient, frame *clientFrame) {
	switch frame.Type {
	case framePing:
		_ = s.uc.Delivery.Touch(client.ID)
		s.reply(ctx, client.ID, &pongFrame{Type: "pong"})

	case frameAcknowledge:
		_ = s.uc.Delivery.Touch(client.ID)
		action, err := usecase.ParseAckAction(frame.Action)
		if err != nil {
			s.reply(ctx, client.ID, &errorFrame{Type: "error", Error: err.Error()})
			return
		}
		rec, err := s.uc.Delivery.AcknowledgeFrom(ctx, client.Role, frame.DeliveryID, action)
		if err != nil {
			_ = errutil.Handle(ctx, err, "acknowledge failed")
			s.reply(ctx, client.ID, &errorFrame{Type: "error", Error: err.Error()})
			return
		}
		s.reply(ctx, client.ID, &acknowledgedFrame{
			Type:       "acknowledged",
			DeliveryID: rec.ID,
			Status:     rec.Status(),
		})

	default:
		s.reply(ctx, client.ID, &errorFrame{Type: "error", Error: "unknown frame type: " + frame.Type})
	}
}

// reply goes through the hub so that the client keeps a single writer
func (s *Server) reply(ctx context.Context, id model.ClientID, v any) {
	if err := s.uc.Hub().Send(id, v); err != nil {
		logging.From(ctx).Warn("failed to reply to client", "error", err)
	}
}

func (s *Server) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// WriteControl is safe to call concurrently with the hub writer
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
