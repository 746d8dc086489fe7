package chat

import "math"

const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9

	// sliders move in steps of 1/settingsSteps
	settingsSteps = 10
)

// GenerationSettings are the per-session knobs exposed as sliders and toggles.
type GenerationSettings struct {
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"topP"`
	VoiceEnabled bool    `json:"voiceEnabled"`
	JargonMode   bool    `json:"jargonMode"`
}

// DefaultSettings returns the slider and toggle defaults.
func DefaultSettings() GenerationSettings {
	return GenerationSettings{
		Temperature:  DefaultTemperature,
		TopP:         DefaultTopP,
		VoiceEnabled: true,
		JargonMode:   false,
	}
}

// Normalize clamps the sliders to [0,1] on a 0.1 grid.
func (s GenerationSettings) Normalize() GenerationSettings {
	s.Temperature = snapUnit(s.Temperature)
	s.TopP = snapUnit(s.TopP)
	return s
}

// SettingsPatch carries a partial settings update; nil fields are untouched.
type SettingsPatch struct {
	Temperature  *float64 `json:"temperature,omitempty"`
	TopP         *float64 `json:"topP,omitempty"`
	VoiceEnabled *bool    `json:"voiceEnabled,omitempty"`
	JargonMode   *bool    `json:"jargonMode,omitempty"`
}

// Apply returns s with the patch applied and normalised.
func (p SettingsPatch) Apply(s GenerationSettings) GenerationSettings {
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		s.TopP = *p.TopP
	}
	if p.VoiceEnabled != nil {
		s.VoiceEnabled = *p.VoiceEnabled
	}
	if p.JargonMode != nil {
		s.JargonMode = *p.JargonMode
	}
	return s.Normalize()
}

func snapUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return math.Round(v*settingsSteps) / settingsSteps
}
