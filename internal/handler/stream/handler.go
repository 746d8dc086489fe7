package stream

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	chatHandler "github.com/zhouzirui/z-bots/backend/internal/handler/chat"
	chatService "github.com/zhouzirui/z-bots/backend/internal/service/chat"
	"github.com/zhouzirui/z-bots/backend/pkg/utils"
)

// Handler manages streaming chat responses via Server-Sent Events
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a new stream handler
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts the SSE endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// sseSink writes every submission event as one SSE frame.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Emit(e chatService.Event) {
	utils.SendSSEEvent(s.w, s.flusher, string(e.Type), e)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// 先校验会话，避免在写出 SSE 头之后才发现错误
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		chatHandler.RespondServiceError(w, err)
		return
	}
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	sink := &sseSink{w: w, flusher: flusher}
	if _, err := h.chatSvc.Submit(r.Context(), sessionID, message, sink); err != nil {
		log.Warnf("[stream] submission rejected session=%s: %v", sessionID, err)
		sink.Emit(chatService.Event{Type: chatService.EventError, SessionID: sessionID, Error: err.Error()})
		sink.Emit(chatService.Event{Type: chatService.EventEnd, SessionID: sessionID, Finished: true})
		return
	}
	log.Infof("[stream] completed response for session=%s", sessionID)
}
