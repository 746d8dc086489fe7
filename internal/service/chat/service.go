package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/zhouzirui/z-bots/backend/internal/analysis/reply"
	"github.com/zhouzirui/z-bots/backend/internal/model/chat"
	"github.com/zhouzirui/z-bots/backend/internal/model/persona"
	speechmodel "github.com/zhouzirui/z-bots/backend/internal/model/speech"
	"github.com/zhouzirui/z-bots/backend/internal/service/ai"
)

var (
	ErrPersonaRequired = errors.New("persona id is required")
	ErrPersonaNotFound = errors.New("persona not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message content is required")
	ErrSessionBusy     = errors.New("session is already handling a message")
)

// Inference is the completion backend consumed by Submit.
type Inference interface {
	StreamingEnabled() bool
	Generate(ctx context.Context, messages []*schema.Message, settings chat.GenerationSettings) (string, error)
	Stream(ctx context.Context, messages []*schema.Message, settings chat.GenerationSettings) (*schema.StreamReader[*schema.Message], error)
}

// Synthesizer renders finished replies as audio.
type Synthesizer interface {
	SynthesizeToBuffer(ctx context.Context, sessionID, text, voice, language string) (*speechmodel.TTSResponse, error)
}

// Options tune pacing and presentation of submissions.
type Options struct {
	// ThinkingDelay 是四词机器人调用模型前的停顿。
	ThinkingDelay time.Duration
	// RevealDelay 是逐词展示的间隔。
	RevealDelay     time.Duration
	StrictWordCount bool
	WordLimit       int
	CursorMarker    string
	Defaults        chat.GenerationSettings
}

// DefaultOptions mirrors the interactive pacing of the chat pages.
func DefaultOptions() Options {
	return Options{
		ThinkingDelay: 500 * time.Millisecond,
		RevealDelay:   300 * time.Millisecond,
		WordLimit:     4,
		CursorMarker:  reply.CursorMarker,
		Defaults:      chat.DefaultSettings(),
	}
}

type sessionState struct {
	// busy is held for the whole of a submission or reset.
	busy sync.Mutex

	mu         sync.RWMutex
	session    chat.Session
	persona    persona.Persona
	transcript *chat.Transcript
	settings   chat.GenerationSettings
}

// Service encapsulates conversation state management.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState

	personas  persona.Store
	inference Inference
	speech    Synthesizer
	opts      Options
}

// NewService wires the session controller. speech may be nil.
func NewService(personas persona.Store, inference Inference, speech Synthesizer, opts Options) *Service {
	if opts.WordLimit <= 0 {
		opts.WordLimit = 4
	}
	if opts.CursorMarker == "" {
		opts.CursorMarker = reply.CursorMarker
	}
	opts.Defaults = opts.Defaults.Normalize()

	return &Service{
		sessions:  make(map[string]*sessionState),
		personas:  personas,
		inference: inference,
		speech:    speech,
		opts:      opts,
	}
}

// CreateSession provisions an anonymous session bound to a persona.
func (s *Service) CreateSession(_ context.Context, personaID string) (chat.Session, error) {
	if personaID == "" {
		return chat.Session{}, ErrPersonaRequired
	}
	p, ok := s.personas.FindByID(personaID)
	if !ok {
		return chat.Session{}, ErrPersonaNotFound
	}

	settings := s.opts.Defaults
	state := &sessionState{
		session: chat.Session{
			ID:        uuid.NewString(),
			PersonaID: personaID,
			CreatedAt: time.Now().UTC(),
		},
		persona:    p,
		transcript: chat.NewTranscript(ai.InitialDirective(&p, settings)),
		settings:   settings,
	}

	s.mu.Lock()
	s.sessions[state.session.ID] = state
	s.mu.Unlock()

	log.Infof("[chat] created session=%s persona=%s", state.session.ID, personaID)
	return state.session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return state.session, nil
}

// Persona returns the bot a session talks to.
func (s *Service) Persona(_ context.Context, sessionID string) (persona.Persona, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return persona.Persona{}, err
	}
	return state.persona, nil
}

// Transcript returns every stored turn, system turn included.
func (s *Service) Transcript(_ context.Context, sessionID string) ([]chat.Turn, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.transcript.All(), nil
}

// Visible returns the turns shown to the user.
func (s *Service) Visible(_ context.Context, sessionID string) ([]chat.Turn, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.transcript.Visible(), nil
}

// RenderedTurn is a visible turn together with its shaped form.
type RenderedTurn struct {
	chat.Turn
	Reasoning string `json:"reasoning,omitempty"`
	Final     string `json:"final"`
}

// Rendered returns the visible turns, shaping assistant turns for bots that
// think before answering.
func (s *Service) Rendered(ctx context.Context, sessionID string) ([]RenderedTurn, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	turns, err := s.Visible(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rendered := make([]RenderedTurn, 0, len(turns))
	for _, turn := range turns {
		item := RenderedTurn{Turn: turn, Final: turn.Content}
		if turn.Role == chat.RoleAssistant && state.persona.ShapesReply() {
			shaped := reply.Shape(turn.Content)
			item.Reasoning = shaped.Reasoning
			item.Final = shaped.Final
		}
		rendered = append(rendered, item)
	}
	return rendered, nil
}

// Settings returns the current generation settings.
func (s *Service) Settings(_ context.Context, sessionID string) (chat.GenerationSettings, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return chat.GenerationSettings{}, err
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.settings, nil
}

// UpdateSettings applies patch. The change affects the next prompt build only.
func (s *Service) UpdateSettings(_ context.Context, sessionID string, patch chat.SettingsPatch) (chat.GenerationSettings, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return chat.GenerationSettings{}, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	state.settings = patch.Apply(state.settings)
	log.Debugf("[chat] settings session=%s temperature=%.1f top_p=%.1f voice=%t jargon=%t",
		sessionID, state.settings.Temperature, state.settings.TopP, state.settings.VoiceEnabled, state.settings.JargonMode)
	return state.settings, nil
}

// Reset replaces the transcript with a single system turn built from the
// current settings.
func (s *Service) Reset(_ context.Context, sessionID string) error {
	state, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	if !state.busy.TryLock() {
		return ErrSessionBusy
	}
	defer state.busy.Unlock()

	state.mu.Lock()
	defer state.mu.Unlock()
	state.transcript.Reset(ai.InitialDirective(&state.persona, state.settings))
	log.Infof("[chat] reset session=%s", sessionID)
	return nil
}

func (s *Service) lookup(sessionID string) (*sessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state, nil
}
