package chat

// EventType names one step of a submission as seen by a presentation sink.
type EventType string

const (
	EventStart       EventType = "start"
	EventThinking    EventType = "thinking"
	EventDelta       EventType = "delta"
	EventReasoning   EventType = "reasoning"
	EventStage       EventType = "stage"
	EventMessage     EventType = "message"
	EventError       EventType = "error"
	EventAudio       EventType = "audio"
	EventSpeechError EventType = "speech_error"
	EventEnd         EventType = "end"
)

// Event is one render instruction emitted while a submission runs.
type Event struct {
	Type      EventType `json:"event"`
	SessionID string    `json:"sessionId,omitempty"`
	Content   string    `json:"content,omitempty"`
	Audio     []byte    `json:"audio,omitempty"`
	Format    string    `json:"format,omitempty"`
	Error     string    `json:"error,omitempty"`
	Finished  bool      `json:"finished,omitempty"`
}

// Sink receives submission events in order. Emit is called from the
// submitting goroutine only.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit implements Sink.
func (f SinkFunc) Emit(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Emit(Event) {}

// Discard drops every event.
var Discard Sink = discardSink{}
