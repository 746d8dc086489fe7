package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-bots/backend/internal/model/speech"
	chatservice "github.com/zhouzirui/z-bots/backend/internal/service/chat"
	"github.com/zhouzirui/z-bots/backend/pkg/utils"
)

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error)
	Health() speech.Health
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	chatSvc   *chatservice.Service
}

// New 创建语音处理器；speechSvc 为 nil 时所有端点返回 503
func New(speechSvc SpeechService, chatSvc *chatservice.Service) *Handler {
	return &Handler{speechSvc: speechSvc, chatSvc: chatSvc}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/synthesize", h.handleSynthesize)
		speechRouter.Post("/synthesize/{sessionID}", h.handleSynthesizeWithSession)
		speechRouter.Get("/health", h.handleHealth)
	})
}

// handleSynthesize 处理文本转语音请求
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	h.processSynthesize(w, r, "")
}

// handleSynthesizeWithSession 处理带会话ID的文本转语音请求，音色和语言取自会话机器人
func (h *Handler) handleSynthesizeWithSession(w http.ResponseWriter, r *http.Request) {
	h.processSynthesize(w, r, chi.URLParam(r, "sessionID"))
}

func (h *Handler) processSynthesize(w http.ResponseWriter, r *http.Request, overrideSessionID string) {
	if h.speechSvc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech service disabled")
		return
	}

	var req speech.TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if overrideSessionID != "" {
		req.SessionID = overrideSessionID
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = "default"
	}

	h.resolveFromSession(r.Context(), &req)

	resp, err := h.speechSvc.SynthesizeSpeech(r.Context(), &req)
	if err != nil {
		log.Errorf("[speech] TTS error: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	if len(resp.AudioData) == 0 {
		utils.RespondJSON(w, http.StatusOK, resp)
		return
	}

	format := resp.Format
	if format == "" {
		format = "mpeg"
	}
	w.Header().Set("Content-Type", "audio/"+format)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.AudioData)))
	w.Header().Set("Content-Disposition", "attachment; filename=speech."+resp.Format)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.AudioData); err != nil {
		log.Warnf("[speech] failed to write audio response: %v", err)
	}
}

// resolveFromSession 用会话机器人的音色与语言补齐缺省字段
func (h *Handler) resolveFromSession(ctx context.Context, req *speech.TTSRequest) {
	if h.chatSvc == nil {
		return
	}
	if req.Voice != "" && req.Language != "" {
		return
	}

	p, err := h.chatSvc.Persona(ctx, req.SessionID)
	if err != nil {
		return
	}
	if req.Voice == "" {
		req.Voice = p.VoiceID
	}
	if req.Language == "" {
		req.Language = p.Language
	}
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if h.speechSvc == nil {
		utils.RespondJSON(w, http.StatusOK, speech.Health{Status: "disabled"})
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.speechSvc.Health())
}
