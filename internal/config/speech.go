package config

import (
	"fmt"
	"os"
	"strings"

	speechmodel "github.com/zhouzirui/z-bots/backend/internal/model/speech"
)

const (
	SpeechProviderGTTS       = "gtts"
	SpeechProviderVolcengine = "volcengine"
)

// SpeechConfig 描述语音合成相关配置
type SpeechConfig struct {
	Enabled  bool
	Provider string
	Language string
	Timeout  int // seconds

	// gTTS 配置
	GTTSBaseURL string

	// Volcengine 配置
	AppID       string
	AccessToken string
	TTSVoice    string
	TTSSpeed    float32
	TTSVolume   float32
}

func loadSpeechConfig() (SpeechConfig, error) {
	enabled, err := parseBoolEnv("SPEECH_ENABLED", true)
	if err != nil {
		return SpeechConfig{}, err
	}

	provider := strings.ToLower(getEnvOrDefault("SPEECH_PROVIDER", SpeechProviderGTTS))
	if provider != SpeechProviderGTTS && provider != SpeechProviderVolcengine {
		return SpeechConfig{}, fmt.Errorf("invalid SPEECH_PROVIDER value %q", provider)
	}

	// 解析超时设置
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30 // 默认30秒
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	// 解析TTS速度和音量
	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0) // 默认1.0倍速
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsVolume := float32(1.0) // 默认1.0音量
	if volume != nil {
		ttsVolume = *volume
	}

	cfg := SpeechConfig{
		Enabled:     enabled,
		Provider:    provider,
		Language:    getEnvOrDefault("SPEECH_LANGUAGE", "en"),
		Timeout:     timeoutSeconds,
		GTTSBaseURL: getEnvOrDefault("SPEECH_GTTS_BASE_URL", "https://translate.google.com"),
		AppID:       strings.TrimSpace(os.Getenv("SPEECH_APP_ID")),
		AccessToken: strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN")),
		TTSVoice:    getEnvOrDefault("SPEECH_TTS_VOICE", ""),
		TTSSpeed:    ttsSpeed,
		TTSVolume:   ttsVolume,
	}

	// 火山引擎缺少凭证时直接关闭语音，而不是在每次合成时报错
	if provider == SpeechProviderVolcengine && (cfg.AppID == "" || cfg.AccessToken == "") {
		cfg.Enabled = false
	}

	return cfg, nil
}

// ServiceConfig 转换为语音服务使用的配置
func (c SpeechConfig) ServiceConfig() *speechmodel.SpeechConfig {
	return &speechmodel.SpeechConfig{
		Provider:    c.Provider,
		GTTSBaseURL: c.GTTSBaseURL,
		AppID:       c.AppID,
		AccessToken: c.AccessToken,
		TTSVoice:    c.TTSVoice,
		TTSSpeed:    c.TTSSpeed,
		TTSVolume:   c.TTSVolume,
		TTSLanguage: c.Language,
		Timeout:     c.Timeout,
	}
}
