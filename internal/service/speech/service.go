package speech

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhouzirui/z-bots/backend/internal/model/speech"
)

// ttsProvider 单个合成后端
type ttsProvider interface {
	Name() string
	Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error)
}

// Service 语音服务核心业务逻辑
type Service struct {
	config   *speech.SpeechConfig
	provider ttsProvider
}

// NewService 按配置选择合成后端
func NewService(config *speech.SpeechConfig) (*Service, error) {
	var provider ttsProvider
	switch strings.ToLower(config.Provider) {
	case "", "gtts":
		provider = NewGTTSClient(config)
	case "volcengine":
		if _, _, err := resolveCredentials(config); err != nil {
			return nil, err
		}
		provider = NewVolcengineTTSClient(config, "")
	default:
		return nil, fmt.Errorf("unsupported speech provider %q", config.Provider)
	}
	return &Service{config: config, provider: provider}, nil
}

// Provider 返回当前合成后端名称
func (s *Service) Provider() string {
	return s.provider.Name()
}

// Health 报告服务状态
func (s *Service) Health() speech.Health {
	return speech.Health{Status: "ok", Provider: s.provider.Name(), Language: s.config.TTSLanguage}
}

// SynthesizeSpeech 文字转语音
func (s *Service) SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("TTS text is empty")
	}
	resp, err := s.provider.Synthesize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s synthesis failed: %w", s.provider.Name(), err)
	}
	return resp, nil
}

// SynthesizeToBuffer 文字转语音（返回字节数组）
func (s *Service) SynthesizeToBuffer(ctx context.Context, sessionID, text, voice, language string) (*speech.TTSResponse, error) {
	return s.SynthesizeSpeech(ctx, &speech.TTSRequest{
		SessionID: sessionID,
		Text:      text,
		Voice:     voice,
		Language:  language,
	})
}
