package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-bots/backend/internal/config"
	personaModel "github.com/zhouzirui/z-bots/backend/internal/model/persona"
	"github.com/zhouzirui/z-bots/backend/internal/service/ai"
	chatService "github.com/zhouzirui/z-bots/backend/internal/service/chat"
	"github.com/zhouzirui/z-bots/backend/internal/testutils"
)

func newTestRouter() http.Handler {
	personas := personaModel.NewMemoryStore(personaModel.Seed())
	aiSvc := ai.NewServiceWithModel(&testutils.FakeModel{Reply: "hi"}, config.AIConfig{Model: "gemma3:latest"})
	chatSvc := chatService.NewService(personas, aiSvc, nil, chatService.DefaultOptions())
	return NewRouter(personas, chatSvc, nil)
}

func TestRouterMountsAPI(t *testing.T) {
	r := newTestRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/personas", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var personas []personaModel.Persona
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &personas))
	require.Len(t, personas, 2)
	assert.Equal(t, "boruto", personas[0].ID)
	assert.Empty(t, personas[0].Directive)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/personas/mini-bot", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/personas/nobody", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"personaId":"boruto"}`)))
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/speech/health", nil))
	assert.Contains(t, resp.Body.String(), "disabled")

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)
}
