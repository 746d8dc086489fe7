package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-bots/backend/internal/model/chat"
	chatService "github.com/zhouzirui/z-bots/backend/internal/service/chat"
	"github.com/zhouzirui/z-bots/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(sr chi.Router) {
		sr.Get("/", h.handleGetSession)
		sr.Get("/transcript", h.handleTranscript)
		sr.Patch("/settings", h.handleUpdateSettings)
		sr.Post("/reset", h.handleReset)
		sr.Post("/messages", h.handleSubmit)
	})
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, chatService.ErrPersonaRequired),
		errors.Is(err, chatService.ErrPersonaNotFound),
		errors.Is(err, chatService.ErrEmptyMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondServiceError 发送服务错误响应
func RespondServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorf("[chat] unexpected error: %v", err)
	}
	utils.RespondError(w, status, err.Error())
}

type sessionView struct {
	chat.Session
	Settings chat.GenerationSettings `json:"settings"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.PersonaID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	settings, err := h.chatSvc.Settings(r.Context(), session.ID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, sessionView{Session: session, Settings: settings})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	settings, err := h.chatSvc.Settings(r.Context(), sessionID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessionView{Session: session, Settings: settings})
}

// handleTranscript 返回可见消息，助手消息已拆分思考与回答
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	turns, err := h.chatSvc.Rendered(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch chat.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.chatSvc.UpdateSettings(r.Context(), chi.URLParam(r, "sessionID"), patch)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, settings)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.Reset(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleSubmit 非流式提交，一次返回完整的交换结果
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exchange, err := h.chatSvc.Submit(r.Context(), chi.URLParam(r, "sessionID"), payload.Content, chatService.Discard)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, exchange)
}
