package speech

import (
	"bytes"
	"context"
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
	speechmodel "github.com/zhouzirui/z-bots/backend/internal/model/speech"
	"github.com/zhouzirui/z-bots/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/z-bots/backend/internal/service/chat"
	"github.com/zhouzirui/z-bots/backend/internal/testutils"
)

type fakeSpeechService struct {
	last  *speechmodel.TTSRequest
	audio []byte
	err   error
}

func (f *fakeSpeechService) SynthesizeSpeech(_ context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &speechmodel.TTSResponse{SessionID: req.SessionID, AudioData: f.audio, Format: "mp3", Provider: "fake"}, nil
}

func (f *fakeSpeechService) Health() speechmodel.Health {
	return speechmodel.Health{Status: "ok", Provider: "fake", Language: "en"}
}

func newChatService() *chatservice.Service {
	aiSvc := ai.NewServiceWithModel(&testutils.FakeModel{}, config.AIConfig{Model: "gemma3:latest"})
	return chatservice.NewService(persona.NewMemoryStore(persona.Seed()), aiSvc, nil, chatservice.DefaultOptions())
}

func newRouter(svc SpeechService, chatSvc *chatservice.Service) *chi.Mux {
	r := chi.NewRouter()
	New(svc, chatSvc).RegisterRoutes(r)
	return r
}

func post(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload)))
	return resp
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	fake := &fakeSpeechService{audio: []byte("audio")}
	r := newRouter(fake, nil)

	resp := post(r, "/speech/synthesize", map[string]string{"text": "hello", "voice": "v1"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "audio/mp3", resp.Header().Get("Content-Type"))
	assert.Equal(t, "audio", resp.Body.String())
	assert.Equal(t, "default", fake.last.SessionID)
	assert.Equal(t, "v1", fake.last.Voice)
}

func TestSynthesizeWithSessionResolvesPersonaVoice(t *testing.T) {
	fake := &fakeSpeechService{audio: []byte("audio")}
	chatSvc := newChatService()
	session, err := chatSvc.CreateSession(context.Background(), "boruto")
	require.NoError(t, err)

	r := newRouter(fake, chatSvc)
	resp := post(r, "/speech/synthesize/"+session.ID, map[string]string{"text": "dattebasa", "sessionId": "ignored"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, session.ID, fake.last.SessionID)
	assert.Equal(t, "en_default", fake.last.Voice)
	assert.Equal(t, "en", fake.last.Language)
}

func TestSynthesizeValidation(t *testing.T) {
	fake := &fakeSpeechService{}
	r := newRouter(fake, nil)

	assert.Equal(t, http.StatusBadRequest, post(r, "/speech/synthesize", map[string]string{"text": "  "}).Code)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/speech/synthesize", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Nil(t, fake.last)
}

func TestSynthesizeFailure(t *testing.T) {
	r := newRouter(&fakeSpeechService{err: errors.New("provider down")}, nil)
	resp := post(r, "/speech/synthesize", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Contains(t, resp.Body.String(), "speech synthesis failed")
}

func TestSynthesizeWithoutAudioReturnsMetadata(t *testing.T) {
	r := newRouter(&fakeSpeechService{}, nil)
	resp := post(r, "/speech/synthesize", map[string]string{"text": "hello"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"provider":"fake"`)
}

func TestHealth(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter(&fakeSpeechService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/speech/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok","provider":"fake","language":"en"}`, resp.Body.String())

	resp = httptest.NewRecorder()
	newRouter(nil, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/speech/health", nil))
	assert.Contains(t, resp.Body.String(), `"status":"disabled"`)

	assert.Equal(t, http.StatusServiceUnavailable, post(newRouter(nil, nil), "/speech/synthesize", map[string]string{"text": "hi"}).Code)
}
