package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-bots/backend/internal/config"
	"github.com/zhouzirui/z-bots/backend/internal/handler"
	speechHandler "github.com/zhouzirui/z-bots/backend/internal/handler/speech"
	"github.com/zhouzirui/z-bots/backend/internal/logging"
	"github.com/zhouzirui/z-bots/backend/internal/model/persona"
	"github.com/zhouzirui/z-bots/backend/internal/service/ai"
	"github.com/zhouzirui/z-bots/backend/internal/service/chat"
	"github.com/zhouzirui/z-bots/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warnf("failed to load .env file: %v", err)
		log.Info("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logging.Configure(os.Stderr, cfg.Log.Level)

	personaStore, err := loadPersonas(cfg.Chat.PersonasFile)
	if err != nil {
		log.Fatalf("failed to load personas: %v", err)
	}

	aiService, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}
	log.Infof("AI service initialized provider=%s model=%s stream=%t", cfg.AI.Provider, cfg.AI.Model, cfg.AI.StreamResponse)

	// speech 可选；未开启时保持接口为 nil
	var (
		synthesizer chat.Synthesizer
		speechAPI   speechHandler.SpeechService
	)
	if cfg.Speech.Enabled {
		speechService, err := speech.NewService(cfg.Speech.ServiceConfig())
		if err != nil {
			log.Warnf("failed to initialize speech service: %v", err)
			log.Info("continuing without speech synthesis")
		} else {
			synthesizer = speechService
			speechAPI = speechService
			log.Infof("Speech service initialized provider=%s", speechService.Provider())
		}
	} else {
		log.Info("speech synthesis disabled, skipping speech initialization")
	}

	opts := chat.Options{
		ThinkingDelay:   cfg.Chat.ThinkingDelay,
		RevealDelay:     cfg.Chat.RevealDelay,
		StrictWordCount: cfg.Chat.StrictWordCount,
		WordLimit:       cfg.Chat.WordLimit,
		CursorMarker:    cfg.Chat.CursorMarker,
		Defaults:        cfg.AI.DefaultSettings(),
	}
	chatService := chat.NewService(personaStore, aiService, synthesizer, opts)

	router := handler.NewRouter(personaStore, chatService, speechAPI)

	startServer(ctx, cfg.Server, router)
}

func loadPersonas(path string) (persona.Store, error) {
	if path == "" {
		return persona.NewMemoryStore(persona.Seed()), nil
	}
	items, err := persona.LoadFile(path)
	if err != nil {
		return nil, err
	}
	log.Infof("loaded %d personas from %s", len(items), path)
	return persona.NewMemoryStore(items), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Infof("Z Bots backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
