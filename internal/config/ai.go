package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/z-bots/backend/internal/model/chat"
)

const (
	ProviderOllama = "ollama"
	ProviderArk    = "ark"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider       string
	Model          string
	BaseURL        string
	Timeout        time.Duration
	StreamResponse bool

	// Ark 专用凭证
	APIKey    string
	AccessKey string
	SecretKey string
	Region    string

	// 会话滑块的初始值
	DefaultTemperature float64
	DefaultTopP        float64
}

// Enabled 表示模型配置是否完整。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOllama:
		return c.Model != "" && c.BaseURL != ""
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	default:
		return false
	}
}

// DefaultSettings 返回新会话使用的生成参数。
func (c AIConfig) DefaultSettings() chat.GenerationSettings {
	settings := chat.DefaultSettings()
	settings.Temperature = c.DefaultTemperature
	settings.TopP = c.DefaultTopP
	return settings.Normalize()
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model configuration incomplete for provider %q", c.Provider)
	}

	switch c.Provider {
	case ProviderOllama:
		cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: c.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return cm, nil
	case ProviderArk:
		cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:   c.BaseURL,
			Region:    c.Region,
			APIKey:    c.APIKey,
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Model:     c.Model,
		})
		if err != nil {
			return nil, err
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", c.Provider)
	}
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderOllama))
	if provider != ProviderOllama && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("LLM_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("LLM_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("LLM_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("LLM_TIMEOUT", 0)
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:           provider,
		Timeout:            timeout,
		StreamResponse:     stream,
		DefaultTemperature: chat.DefaultTemperature,
		DefaultTopP:        chat.DefaultTopP,
	}
	if temperature != nil {
		cfg.DefaultTemperature = *temperature
	}
	if topP != nil {
		cfg.DefaultTopP = *topP
	}

	switch provider {
	case ProviderOllama:
		cfg.Model = getEnvOrDefault("OLLAMA_MODEL", "gemma3:latest")
		cfg.BaseURL = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
	case ProviderArk:
		cfg.Model = strings.TrimSpace(os.Getenv("ARK_MODEL"))
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.AccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		cfg.SecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
	}

	return cfg, nil
}
