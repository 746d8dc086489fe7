package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-bots/backend/internal/config"
	"github.com/zhouzirui/z-bots/backend/internal/model/persona"
	"github.com/zhouzirui/z-bots/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/z-bots/backend/internal/service/chat"
	"github.com/zhouzirui/z-bots/backend/internal/testutils"
)

func setupRouter(fake *testutils.FakeModel) (*chi.Mux, *chatservice.Service) {
	opts := chatservice.DefaultOptions()
	opts.ThinkingDelay = 0
	opts.RevealDelay = 0
	aiSvc := ai.NewServiceWithModel(fake, config.AIConfig{Model: "gemma3:latest"})
	chatSvc := chatservice.NewService(persona.NewMemoryStore(persona.Seed()), aiSvc, nil, opts)

	r := chi.NewRouter()
	New(chatSvc).RegisterRoutes(r)
	return r, chatSvc
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, r http.Handler, personaID string) string {
	t.Helper()
	resp := do(t, r, http.MethodPost, "/session", map[string]string{"personaId": personaID})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created struct {
		ID       string `json:"id"`
		Settings struct {
			Temperature float64 `json:"temperature"`
		} `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.InDelta(t, 0.7, created.Settings.Temperature, 1e-9)
	return created.ID
}

func TestCreateSessionValidPersona(t *testing.T) {
	r, _ := setupRouter(&testutils.FakeModel{})
	assert.NotEmpty(t, createSession(t, r, "boruto"))
}

func TestCreateSessionInvalidPersona(t *testing.T) {
	r, _ := setupRouter(&testutils.FakeModel{})

	resp := do(t, r, http.MethodPost, "/session", map[string]string{"personaId": "non-existent"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, r, http.MethodPost, "/session", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, r, http.MethodPost, "/session", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSubmitAndTranscript(t *testing.T) {
	r, _ := setupRouter(&testutils.FakeModel{Reply: "<thought>\nthinking\n</thought>\nSimple clear reply now"})
	id := createSession(t, r, "mini-bot")

	resp := do(t, r, http.MethodPost, "/session/"+id+"/messages", map[string]string{"content": "hi"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var exchange chatservice.Exchange
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &exchange))
	assert.Equal(t, "thinking", exchange.Reasoning)
	assert.Equal(t, "Simple clear reply now", exchange.Final)
	assert.False(t, exchange.Failed)

	resp = do(t, r, http.MethodGet, "/session/"+id+"/transcript", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var transcript struct {
		Turns []chatservice.RenderedTurn `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &transcript))
	require.Len(t, transcript.Turns, 2)
	assert.Equal(t, "hi", transcript.Turns[0].Content)
	assert.Equal(t, "Simple clear reply now", transcript.Turns[1].Final)
}

func TestSubmitFailureStillReturnsExchange(t *testing.T) {
	r, _ := setupRouter(&testutils.FakeModel{Err: errors.New("ollama down")})
	id := createSession(t, r, "mini-bot")

	resp := do(t, r, http.MethodPost, "/session/"+id+"/messages", map[string]string{"content": "hi"})
	require.Equal(t, http.StatusOK, resp.Code)

	var exchange chatservice.Exchange
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &exchange))
	assert.True(t, exchange.Failed)
	assert.Equal(t, "Backend connectivity failure detected.", exchange.Assistant.Content)
}

func TestSessionErrorsMapToStatus(t *testing.T) {
	r, _ := setupRouter(&testutils.FakeModel{})
	id := createSession(t, r, "boruto")

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/session/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/session/missing/reset", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/session/"+id+"/messages", map[string]string{"content": " "}).Code)
}

func TestSettingsAndReset(t *testing.T) {
	r, _ := setupRouter(&testutils.FakeModel{Fragments: []string{"ok"}})
	id := createSession(t, r, "boruto")

	resp := do(t, r, http.MethodPatch, "/session/"+id+"/settings", `{"temperature": 0.26, "voiceEnabled": false}`)
	require.Equal(t, http.StatusOK, resp.Code)
	var settings struct {
		Temperature  float64 `json:"temperature"`
		TopP         float64 `json:"topP"`
		VoiceEnabled bool    `json:"voiceEnabled"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &settings))
	assert.InDelta(t, 0.3, settings.Temperature, 1e-9)
	assert.InDelta(t, 0.9, settings.TopP, 1e-9)
	assert.False(t, settings.VoiceEnabled)

	resp = do(t, r, http.MethodGet, "/session/"+id, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"personaId":"boruto"`)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/session/"+id+"/messages", map[string]string{"content": "hi"}).Code)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/session/"+id+"/reset", nil).Code)

	resp = do(t, r, http.MethodGet, "/session/"+id+"/transcript", nil)
	assert.JSONEq(t, `{"turns":[]}`, resp.Body.String())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusFor(chatservice.ErrSessionBusy))
	assert.Equal(t, http.StatusNotFound, StatusFor(chatservice.ErrSessionNotFound))
	assert.Equal(t, http.StatusBadRequest, StatusFor(chatservice.ErrPersonaRequired))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}
