package http_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	httpctrl "github.com/hearth-archive/hearth/pkg/controller/http"
	"github.com/m-mizutani/gt"
)

func (f *fixture) dial(t *testing.T, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	gt.NoError(t, err).Required()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	gt.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second))).Required()
	var frame map[string]any
	gt.NoError(t, conn.ReadJSON(&frame)).Required()
	return frame
}

func authenticate(t *testing.T, conn *websocket.Conn, role string) map[string]any {
	t.Helper()
	gt.NoError(t, conn.WriteJSON(map[string]string{"type": "authenticate", "role": role})).Required()
	frame := readFrame(t, conn)
	gt.Value(t, frame["type"]).Equal("authenticated")
	return frame
}

func TestWebSocket_ReplayAndAcknowledge(t *testing.T) {
	f := newFixture(t)
	f.createWedding(t)

	result, err := f.uc.Proactive.RunCycle(context.Background())
	gt.NoError(t, err).Required()
	gt.Value(t, string(result.Dispatch.Outcome)).Equal("queued")
	id := result.Dispatch.Record.ID.String()

	conn := f.dial(t, nil)
	authenticate(t, conn, "patient")

	event := readFrame(t, conn)
	gt.Value(t, event["type"]).Equal("proactive_memory")
	gt.Value(t, event["delivery_id"]).Equal(id)
	gt.Value(t, event["status"]).Equal("delivered")
	trigger := event["trigger"].(map[string]any)
	gt.Value(t, trigger["title"]).Equal("Your Wedding Anniversary")

	gt.NoError(t, conn.WriteJSON(map[string]string{
		"type":        "acknowledge",
		"delivery_id": id,
		"action":      "viewed",
	})).Required()
	ack := readFrame(t, conn)
	gt.Value(t, ack["type"]).Equal("acknowledged")
	gt.Value(t, ack["delivery_id"]).Equal(id)
	gt.Value(t, ack["status"]).Equal("viewed")

	viewed, err := f.uc.Delivery.WasAlreadyViewedToday(context.Background(), result.Dispatch.Record.Kind, result.Dispatch.Record.Date)
	gt.NoError(t, err)
	gt.True(t, viewed)
}

func TestWebSocket_OnlineDelivery(t *testing.T) {
	f := newFixture(t)
	f.createWedding(t)

	conn := f.dial(t, nil)
	authenticate(t, conn, "patient")

	result, err := f.uc.Proactive.RunCycle(context.Background())
	gt.NoError(t, err).Required()
	gt.Value(t, string(result.Dispatch.Outcome)).Equal("delivered")
	gt.Value(t, result.Dispatch.Accepted).Equal(1)

	event := readFrame(t, conn)
	gt.Value(t, event["type"]).Equal("proactive_memory")
	gt.Value(t, event["delivery_id"]).Equal(result.Dispatch.Record.ID.String())
}

func TestWebSocket_Ping(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, nil)
	authenticate(t, conn, "caregiver")

	gt.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"})).Required()
	gt.Value(t, readFrame(t, conn)["type"]).Equal("pong")

	gt.A(t, f.uc.Delivery.Clients()).Length(1)
}

func TestWebSocket_BadFrames(t *testing.T) {
	f := newFixture(t)

	t.Run("first frame must authenticate", func(t *testing.T) {
		conn := f.dial(t, nil)
		gt.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"})).Required()
		gt.Value(t, readFrame(t, conn)["type"]).Equal("error")

		_, _, err := conn.ReadMessage()
		gt.Error(t, err)
	})

	t.Run("unknown role", func(t *testing.T) {
		conn := f.dial(t, nil)
		gt.NoError(t, conn.WriteJSON(map[string]string{"type": "authenticate", "role": "visitor"})).Required()
		gt.Value(t, readFrame(t, conn)["type"]).Equal("error")
	})

	t.Run("unknown acknowledge action", func(t *testing.T) {
		conn := f.dial(t, nil)
		authenticate(t, conn, "patient")
		gt.NoError(t, conn.WriteJSON(map[string]string{
			"type":        "acknowledge",
			"delivery_id": "missing",
			"action":      "snoozed",
		})).Required()
		gt.Value(t, readFrame(t, conn)["type"]).Equal("error")
	})

	t.Run("acknowledge unknown delivery", func(t *testing.T) {
		conn := f.dial(t, nil)
		authenticate(t, conn, "patient")
		gt.NoError(t, conn.WriteJSON(map[string]string{
			"type":        "acknowledge",
			"delivery_id": "missing",
			"action":      "viewed",
		})).Required()
		gt.Value(t, readFrame(t, conn)["type"]).Equal("error")
	})
}

func TestWebSocket_CaregiverCannotAcknowledge(t *testing.T) {
	f := newFixture(t)
	f.createWedding(t)

	patient := f.dial(t, nil)
	authenticate(t, patient, "patient")
	res, err := f.uc.Proactive.RunCycle(context.Background())
	gt.NoError(t, err).Required()
	gt.Value(t, readFrame(t, patient)["type"]).Equal("proactive_memory")

	caregiver := f.dial(t, nil)
	authenticate(t, caregiver, "caregiver")
	gt.NoError(t, caregiver.WriteJSON(map[string]string{
		"type":        "acknowledge",
		"delivery_id": res.Dispatch.Record.ID.String(),
		"action":      "viewed",
	})).Required()
	gt.Value(t, readFrame(t, caregiver)["type"]).Equal("error")

	viewed, err := f.uc.Delivery.WasAlreadyViewedToday(context.Background(), res.Trigger.Kind, res.Trigger.Date)
	gt.NoError(t, err).Required()
	gt.False(t, viewed)
}

func TestWebSocket_AllowedOrigins(t *testing.T) {
	f := newFixture(t, httpctrl.WithAllowedOrigins("https://hearth.example"))
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	gt.Error(t, err)
	gt.Value(t, resp.StatusCode).Equal(http.StatusForbidden)

	conn := f.dial(t, http.Header{"Origin": {"https://hearth.example"}})
	authenticate(t, conn, "patient")
}
