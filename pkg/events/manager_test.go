package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emotionsim/emotionsim/pkg/models"
)

type fakeSource struct {
	emitters map[string]*Emitter
	statuses map[string]RunStatusPayload
}

func (s *fakeSource) SubscribeRun(runID, name string, buffer int) (*Sink, error) {
	e, ok := s.emitters[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return e.Subscribe(name, buffer), nil
}

func (s *fakeSource) RunStatus(runID string) (RunStatusPayload, error) {
	st, ok := s.statuses[runID]
	if !ok {
		return RunStatusPayload{}, fmt.Errorf("run %s not found", runID)
	}
	return st, nil
}

func newWSTestEnv(t *testing.T) (*fakeSource, *Emitter, *httptest.Server) {
	t.Helper()
	emitter := NewEmitter(nil)
	source := &fakeSource{
		emitters: map[string]*Emitter{"run1": emitter},
		statuses: map[string]RunStatusPayload{
			"run1": {RunID: "run1", Status: models.RunRunning, CurrentStep: 3},
		},
	}
	manager := NewConnectionManager(source, 5*time.Second, nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		require.NoError(t, err)
		runID := strings.TrimPrefix(r.URL.Path, "/ws/")
		manager.HandleConnection(r.Context(), conn, runID)
	}))
	t.Cleanup(server.Close)
	t.Cleanup(emitter.Close)
	return source, emitter, server
}

func dialWS(t *testing.T, server *httptest.Server, runID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + runID
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestConnectionReceivesConnectedThenEvents(t *testing.T) {
	_, emitter, server := newWSTestEnv(t)
	conn := dialWS(t, server, "run1")

	hello := readEnvelope(t, conn)
	require.Equal(t, EventConnected, hello["event"])
	data := hello["data"].(map[string]any)
	assert.Equal(t, "run1", data["run_id"])
	assert.NotEmpty(t, data["connection_id"])
	assert.NotEmpty(t, hello["timestamp"])

	emitter.Emit(EventStepStarted, StepStartedPayload{RunID: "run1", StepIndex: 1})
	ev := readEnvelope(t, conn)
	assert.Equal(t, EventStepStarted, ev["event"])
	assert.EqualValues(t, 1, ev["data"].(map[string]any)["step_index"])
}

func TestClientPingGetsPong(t *testing.T) {
	_, _, server := newWSTestEnv(t)
	conn := dialWS(t, server, "run1")
	readEnvelope(t, conn) // connected

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))

	ev := readEnvelope(t, conn)
	assert.Equal(t, EventPong, ev["event"])
}

func TestClientGetStatus(t *testing.T) {
	_, _, server := newWSTestEnv(t)
	conn := dialWS(t, server, "run1")
	readEnvelope(t, conn) // connected

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"get_status"}`)))

	ev := readEnvelope(t, conn)
	require.Equal(t, EventRunStatus, ev["event"])
	data := ev["data"].(map[string]any)
	assert.Equal(t, string(models.RunRunning), data["status"])
	assert.EqualValues(t, 3, data["current_step"])
}

func TestUnknownRunGetsErrorEvent(t *testing.T) {
	_, _, server := newWSTestEnv(t)
	conn := dialWS(t, server, "missing")

	ev := readEnvelope(t, conn)
	assert.Equal(t, EventError, ev["event"])
}
