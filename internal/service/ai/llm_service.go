package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-bots/backend/internal/config"
	"github.com/zhouzirui/z-bots/backend/internal/model/chat"
)

// ErrInferenceFailure wraps every error raised by the model backend.
var ErrInferenceFailure = errors.New("inference failure")

// Service is the boundary to the chat completion backend.
type Service struct {
	chatModel model.BaseChatModel
	cfg       config.AIConfig
}

// NewService creates a new AI service instance from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(chatModel, cfg), nil
}

// NewServiceWithModel wraps an already constructed chat model.
func NewServiceWithModel(chatModel model.BaseChatModel, cfg config.AIConfig) *Service {
	return &Service{chatModel: chatModel, cfg: cfg}
}

// StreamingEnabled 指示是否开启流式输出。
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// ModelName returns the configured model identifier.
func (s *Service) ModelName() string {
	return s.cfg.Model
}

// Generate returns one complete reply.
func (s *Service) Generate(ctx context.Context, messages []*schema.Message, settings chat.GenerationSettings) (string, error) {
	log.Debugf("[ai] generate model=%s messages=%s", s.cfg.Model, DescribeMessages(messages))

	response, err := s.chatModel.Generate(ctx, messages, s.options(settings)...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInferenceFailure, err)
	}
	if response == nil {
		return "", fmt.Errorf("%w: empty response", ErrInferenceFailure)
	}

	log.Infof("[ai] generated response model=%s length=%d", s.cfg.Model, len(response.Content))
	return response.Content, nil
}

// Stream returns the reply as an ordered, finite sequence of fragments. The
// caller owns the reader and must Close it.
func (s *Service) Stream(ctx context.Context, messages []*schema.Message, settings chat.GenerationSettings) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	log.Debugf("[ai] stream model=%s messages=%s", s.cfg.Model, DescribeMessages(messages))

	stream, err := s.chatModel.Stream(ctx, messages, s.options(settings)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInferenceFailure, err)
	}
	return stream, nil
}

func (s *Service) options(settings chat.GenerationSettings) []model.Option {
	opts := []model.Option{
		model.WithTemperature(float32(settings.Temperature)),
		model.WithTopP(float32(settings.TopP)),
	}
	if s.cfg.Model != "" {
		opts = append(opts, model.WithModel(s.cfg.Model))
	}
	return opts
}
