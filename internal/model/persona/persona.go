package persona

// Variant selects the formatting policy a bot follows.
type Variant string

const (
	// VariantPersona stores its directive as the first transcript turn,
	// streams the reply and may speak it.
	VariantPersona Variant = "persona"
	// VariantFourWord regenerates its directive on every request and shapes
	// the reply into a reasoning panel plus a staged four-word answer.
	VariantFourWord Variant = "four-word"
)

// Persona captures one bot exposed to the frontend.
type Persona struct {
	ID          string  `json:"id" toml:"id"`
	Name        string  `json:"name" toml:"name"`
	Title       string  `json:"title" toml:"title"`
	Avatar      string  `json:"avatar" toml:"avatar"`
	Tagline     string  `json:"tagline,omitempty" toml:"tagline"`
	Placeholder string  `json:"placeholder,omitempty" toml:"placeholder"`
	Variant     Variant `json:"variant" toml:"variant"`

	// Directive is the full system text for persona bots and the shared
	// preamble for four-word bots.
	Directive string `json:"-" toml:"directive"`
	// JargonRule and PlainRule finish a four-word directive depending on the
	// jargon-mode toggle.
	JargonRule string `json:"-" toml:"jargon_rule"`
	PlainRule  string `json:"-" toml:"plain_rule"`
	// Fallback becomes the assistant turn when the model call fails.
	Fallback string `json:"-" toml:"fallback"`

	Language string `json:"language,omitempty" toml:"language"` // speech language code
	VoiceID  string `json:"voiceId,omitempty" toml:"voice_id"`
	Stream   bool   `json:"stream" toml:"stream"`

	Profile []ProfileField `json:"profile,omitempty" toml:"profile"`
	Quote   string         `json:"quote,omitempty" toml:"quote"`
}

// ProfileField is one labelled line of the sidebar bio.
type ProfileField struct {
	Label string `json:"label" toml:"label"`
	Value string `json:"value" toml:"value"`
}

// RegeneratesDirective reports whether the system message is recomputed from
// the current settings on every request instead of read from the transcript.
func (p Persona) RegeneratesDirective() bool {
	return p.Variant == VariantFourWord
}

// ShapesReply reports whether replies carry a reasoning block to split out.
func (p Persona) ShapesReply() bool {
	return p.Variant == VariantFourWord
}

// Speaks reports whether finished replies may be forwarded to speech.
func (p Persona) Speaks() bool {
	return p.Variant == VariantPersona
}

const borutoDirective = "You are Boruto Uzumaki. Mimic his personality perfectly: confident, rebellious, but loyal. " +
	"Use catchphrases like '...ttebasa!'. Mention thunder burgers or your dad when relevant. " +
	"Keep it energetic and youthful."

const fourWordPreamble = "You must show your internal thinking process. " +
	"Your response must follow this EXACT format:\n" +
	"<thought>\nYour detailed reasoning here...\n</thought>\n" +
	"Final response here.\n\n" +
	"CRITICAL CONSTRAINTS:\n" +
	"1. ALWAYS include <thought>...</thought> before your answer.\n" +
	"2. Your final answer (outside thought tags) must be EXACTLY four words.\n"

// Seed provides the two built-in bots.
func Seed() []Persona {
	return []Persona{
		{
			ID:          "boruto",
			Name:        "Boruto Uzumaki",
			Title:       "Boruto: Next Generation AI",
			Avatar:      "🍥",
			Tagline:     "Master your ninja way with the son of the Seventh Hokage",
			Placeholder: "What's the plan, ttebasa?",
			Variant:     VariantPersona,
			Directive:   borutoDirective,
			Fallback:    "Ugh, my chakra's acting up... (Ollama error)",
			Language:    "en",
			VoiceID:     "en_default",
			Stream:      true,
			Profile: []ProfileField{
				{Label: "Affiliation", Value: "Konohagakure"},
				{Label: "Team", Value: "Team 7"},
				{Label: "Specialty", Value: "Karma, Vanishing Rasengan"},
			},
			Quote: "I'm gonna be a shinobi who supports the Hokage from the shadows!",
		},
		{
			ID:          "mini-bot",
			Name:        "Mini Bot",
			Title:       "Mini Bot",
			Avatar:      "🤖",
			Tagline:     "Thinks deep, replies in 4 words.",
			Placeholder: "You:",
			Variant:     VariantFourWord,
			Directive:   fourWordPreamble,
			JargonRule:  "3. Use ONLY complex technical or corporate jargon for those 4 words (e.g., 'Synergize scalable cloud paradigms').\n",
			PlainRule:   "3. Use simple, clear language for the 4 words.\n",
			Fallback:    "Backend connectivity failure detected.",
			Language:    "en",
			Stream:      false,
		},
	}
}
