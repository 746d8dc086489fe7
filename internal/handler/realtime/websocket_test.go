package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-bots/backend/internal/config"
	"github.com/zhouzirui/z-bots/backend/internal/model/persona"
	"github.com/zhouzirui/z-bots/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/z-bots/backend/internal/service/chat"
	"github.com/zhouzirui/z-bots/backend/internal/testutils"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startServer(t *testing.T, fake *testutils.FakeModel) (*httptest.Server, *chatservice.Service) {
	t.Helper()
	opts := chatservice.DefaultOptions()
	opts.ThinkingDelay = 0
	opts.RevealDelay = 0
	aiSvc := ai.NewServiceWithModel(fake, config.AIConfig{Model: "gemma3:latest"})
	chatSvc := chatservice.NewService(persona.NewMemoryStore(persona.Seed()), aiSvc, nil, opts)

	r := chi.NewRouter()
	New(chatSvc).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chatSvc
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { ws.Close() })
	return ws
}

func read(t *testing.T, ws *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env envelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func TestWebSocketSubmitRelaysEvents(t *testing.T) {
	srv, chatSvc := startServer(t, &testutils.FakeModel{Reply: "<thought>\nhmm\n</thought>\nSimple clear reply now"})
	session, err := chatSvc.CreateSession(context.Background(), "mini-bot")
	require.NoError(t, err)

	ws := dial(t, srv, session.ID)
	connected := read(t, ws)
	assert.Equal(t, "connected", connected.Type)
	assert.Contains(t, string(connected.Data), `"persona":"mini-bot"`)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "hello"}}))

	var (
		kinds  []chatservice.EventType
		stages []string
	)
	for {
		env := read(t, ws)
		require.Equal(t, "event", env.Type)
		var e chatservice.Event
		require.NoError(t, json.Unmarshal(env.Data, &e))
		kinds = append(kinds, e.Type)
		if e.Type == chatservice.EventStage {
			stages = append(stages, e.Content)
		}
		if e.Type == chatservice.EventEnd {
			break
		}
	}

	assert.Equal(t, []chatservice.EventType{
		chatservice.EventStart, chatservice.EventThinking, chatservice.EventReasoning,
		chatservice.EventStage, chatservice.EventStage, chatservice.EventStage, chatservice.EventStage,
		chatservice.EventMessage, chatservice.EventEnd,
	}, kinds)
	assert.Equal(t, "Simple clear reply now", stages[3])

	turns, err := chatSvc.Visible(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestWebSocketSettingsAndReset(t *testing.T) {
	srv, chatSvc := startServer(t, &testutils.FakeModel{})
	session, err := chatSvc.CreateSession(context.Background(), "mini-bot")
	require.NoError(t, err)

	ws := dial(t, srv, session.ID)
	read(t, ws)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "settings", "data": map[string]any{"jargonMode": true, "topP": 0.44}}))
	env := read(t, ws)
	require.Equal(t, "settings", env.Type)
	assert.Contains(t, string(env.Data), `"jargonMode":true`)

	settings, err := chatSvc.Settings(context.Background(), session.ID)
	require.NoError(t, err)
	assert.True(t, settings.JargonMode)
	assert.InDelta(t, 0.4, settings.TopP, 1e-9)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "reset"}))
	assert.Equal(t, "reset", read(t, ws).Type)

	transcript, err := chatSvc.Transcript(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 1)
	assert.Contains(t, transcript[0].Content, "jargon")
}

func TestWebSocketRejectsBadInput(t *testing.T) {
	srv, chatSvc := startServer(t, &testutils.FakeModel{})
	session, err := chatSvc.CreateSession(context.Background(), "boruto")
	require.NoError(t, err)

	ws := dial(t, srv, session.ID)
	read(t, ws)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "audio"}))
	env := read(t, ws)
	assert.Equal(t, "error", env.Type)
	assert.Contains(t, string(env.Data), "unsupported message type")

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "text", "sessionId": "other", "data": map[string]string{"text": "hi"}}))
	env = read(t, ws)
	assert.Equal(t, "error", env.Type)
	assert.Contains(t, string(env.Data), "session mismatch")
}

func TestWebSocketUnknownSession(t *testing.T) {
	srv, _ := startServer(t, &testutils.FakeModel{})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
