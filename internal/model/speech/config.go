package speech

// SpeechConfig 语音服务配置
type SpeechConfig struct {
	// Provider 选择合成后端：gtts 或 volcengine
	Provider string `json:"provider"`

	// gTTS 配置
	GTTSBaseURL string `json:"gttsBaseUrl"`

	// Volcengine 配置
	AppID       string `json:"appId"`       // 火山引擎 APP ID
	AccessToken string `json:"accessToken"` // 火山引擎 Access Token

	// TTS 配置
	TTSVoice    string  `json:"ttsVoice"`
	TTSSpeed    float32 `json:"ttsSpeed"`
	TTSVolume   float32 `json:"ttsVolume"`
	TTSLanguage string  `json:"ttsLanguage"`

	// 通用配置
	Timeout int `json:"timeout"` // seconds
}
