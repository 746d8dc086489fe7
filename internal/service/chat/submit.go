package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-bots/backend/internal/analysis/reply"
	"github.com/zhouzirui/z-bots/backend/internal/model/chat"
	"github.com/zhouzirui/z-bots/backend/internal/model/persona"
	"github.com/zhouzirui/z-bots/backend/internal/service/ai"
)

// Exchange is the outcome of one submission.
type Exchange struct {
	User      chat.Turn `json:"user"`
	Assistant chat.Turn `json:"assistant"`
	Reasoning string    `json:"reasoning,omitempty"`
	Final     string    `json:"final"`
	// Failed marks an exchange whose assistant turn is the fallback literal.
	Failed      bool   `json:"failed"`
	Error       string `json:"error,omitempty"`
	Audio       []byte `json:"audio,omitempty"`
	AudioFormat string `json:"audioFormat,omitempty"`
	SpeechError string `json:"speechError,omitempty"`
}

// Submit runs one full exchange: the user turn is stored, the model is
// called, and exactly one assistant turn is stored whatever the outcome.
// Inference failures never surface as an error; they are reported through
// sink and replaced by the bot's fallback line.
func (s *Service) Submit(ctx context.Context, sessionID, text string, sink Sink) (Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return Exchange{}, ErrEmptyMessage
	}
	state, err := s.lookup(sessionID)
	if err != nil {
		return Exchange{}, err
	}
	if !state.busy.TryLock() {
		return Exchange{}, ErrSessionBusy
	}
	defer state.busy.Unlock()

	if sink == nil {
		sink = Discard
	}
	// 生成一旦开始就跑到结束，不随调用方取消。
	ctx = context.WithoutCancel(ctx)

	state.mu.Lock()
	userTurn := chat.UserTurn(text)
	state.transcript.Append(userTurn)
	turns := state.transcript.All()
	settings := state.settings
	p := state.persona
	state.mu.Unlock()

	sink.Emit(Event{Type: EventStart, SessionID: sessionID, Content: p.Name})

	raw, genErr := s.generate(ctx, sessionID, &p, turns, settings, sink)
	exchange := Exchange{User: userTurn}
	if genErr != nil {
		log.Errorf("[chat] generation failed session=%s persona=%s: %v", sessionID, p.ID, genErr)
		sink.Emit(Event{Type: EventError, SessionID: sessionID, Error: errorIndicator(genErr)})
		raw = p.Fallback
		exchange.Failed = true
		exchange.Error = genErr.Error()
	}

	assistantTurn := chat.AssistantTurn(raw)
	state.mu.Lock()
	state.transcript.Append(assistantTurn)
	state.mu.Unlock()
	exchange.Assistant = assistantTurn

	if exchange.Failed {
		exchange.Final = raw
		sink.Emit(Event{Type: EventMessage, SessionID: sessionID, Content: raw})
	} else {
		s.present(ctx, sessionID, &p, settings, raw, sink, &exchange)
	}

	sink.Emit(Event{Type: EventEnd, SessionID: sessionID, Finished: true})
	log.Infof("[chat] completed exchange session=%s persona=%s failed=%t", sessionID, p.ID, exchange.Failed)
	return exchange, nil
}

func (s *Service) generate(ctx context.Context, sessionID string, p *persona.Persona, turns []chat.Turn, settings chat.GenerationSettings, sink Sink) (string, error) {
	if p.ShapesReply() {
		sink.Emit(Event{Type: EventThinking, SessionID: sessionID})
		if s.opts.ThinkingDelay > 0 {
			time.Sleep(s.opts.ThinkingDelay)
		}
	}

	messages, err := ai.BuildMessages(ctx, p, turns, settings)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ai.ErrInferenceFailure, err)
	}

	if p.Stream && s.inference.StreamingEnabled() {
		return s.consumeStream(ctx, sessionID, messages, settings, sink)
	}
	return s.inference.Generate(ctx, messages, settings)
}

func (s *Service) consumeStream(ctx context.Context, sessionID string, messages []*schema.Message, settings chat.GenerationSettings, sink Sink) (string, error) {
	stream, err := s.inference.Stream(ctx, messages, settings)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	acc := reply.NewAccumulator(s.opts.CursorMarker)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", fmt.Errorf("%w: %w", ai.ErrInferenceFailure, recvErr)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		sink.Emit(Event{Type: EventDelta, SessionID: sessionID, Content: acc.Add(chunk.Content)})
	}

	log.Debugf("[chat] stream finished session=%s fragments=%d", sessionID, acc.Fragments())
	return acc.Text(), nil
}

// present renders a successful reply and forwards it to speech.
func (s *Service) present(ctx context.Context, sessionID string, p *persona.Persona, settings chat.GenerationSettings, raw string, sink Sink, exchange *Exchange) {
	if !p.ShapesReply() {
		exchange.Final = raw
		sink.Emit(Event{Type: EventMessage, SessionID: sessionID, Content: raw})
		if p.Speaks() && settings.VoiceEnabled {
			s.speak(ctx, sessionID, p, raw, sink, exchange)
		}
		return
	}

	shaped := reply.Shape(raw)
	if shaped.HasReasoning {
		exchange.Reasoning = shaped.Reasoning
		sink.Emit(Event{Type: EventReasoning, SessionID: sessionID, Content: shaped.Reasoning})
	}

	final := shaped.Final
	if s.opts.StrictWordCount {
		enforced, conforms := reply.EnforceWordCount(final, s.opts.WordLimit)
		if !conforms {
			log.Warnf("[chat] reply has %d words, want %d session=%s", reply.CountWords(final), s.opts.WordLimit, sessionID)
		}
		final = enforced
	}
	exchange.Final = final

	_ = reply.Reveal(ctx, final, s.opts.RevealDelay, func(stage string) {
		sink.Emit(Event{Type: EventStage, SessionID: sessionID, Content: stage})
	})
	sink.Emit(Event{Type: EventMessage, SessionID: sessionID, Content: final})
}

func (s *Service) speak(ctx context.Context, sessionID string, p *persona.Persona, text string, sink Sink, exchange *Exchange) {
	if s.speech == nil || strings.TrimSpace(text) == "" {
		return
	}

	resp, err := s.speech.SynthesizeToBuffer(ctx, sessionID, text, p.VoiceID, p.Language)
	if err != nil {
		log.Warnf("[chat] speech synthesis failed session=%s: %v", sessionID, err)
		exchange.SpeechError = err.Error()
		sink.Emit(Event{Type: EventSpeechError, SessionID: sessionID, Error: err.Error()})
		return
	}

	exchange.Audio = resp.AudioData
	exchange.AudioFormat = resp.Format
	sink.Emit(Event{Type: EventAudio, SessionID: sessionID, Audio: resp.AudioData, Format: resp.Format})
}

func errorIndicator(err error) string {
	if errors.Is(err, ai.ErrInferenceFailure) {
		return "Error: " + err.Error()
	}
	return "Error: " + ai.ErrInferenceFailure.Error() + ": " + err.Error()
}
