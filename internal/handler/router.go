package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/z-bots/backend/internal/handler/chat"
	"github.com/zhouzirui/z-bots/backend/internal/handler/persona"
	"github.com/zhouzirui/z-bots/backend/internal/handler/realtime"
	"github.com/zhouzirui/z-bots/backend/internal/handler/speech"
	"github.com/zhouzirui/z-bots/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/z-bots/backend/internal/middleware"
	personaModel "github.com/zhouzirui/z-bots/backend/internal/model/persona"
	chatService "github.com/zhouzirui/z-bots/backend/internal/service/chat"
)

// NewRouter wires HTTP routes to core services. speechSvc may be nil when
// synthesis is disabled.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, speechSvc speech.SpeechService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(personas).RegisterRoutes(api)
		chat.New(chatSvc).RegisterRoutes(api)
		stream.New(chatSvc).RegisterRoutes(api)
		realtime.New(chatSvc).RegisterRoutes(api)
		speech.New(speechSvc, chatSvc).RegisterRoutes(api)
	})

	return r
}
