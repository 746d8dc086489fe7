// Package reply turns raw model text into what the chat UI renders: a
// reasoning panel, a highlighted final answer revealed word by word, and the
// running text of a streamed reply.
package reply

import "strings"

const (
	ThoughtOpen  = "<thought>"
	ThoughtClose = "</thought>"
)

// Shaped is a raw reply split into reasoning and final answer.
type Shaped struct {
	Reasoning    string `json:"reasoning,omitempty"`
	HasReasoning bool   `json:"hasReasoning"`
	Final        string `json:"final"`
}

// Shaper extracts marker-delimited reasoning blocks.
type Shaper struct {
	Open  string
	Close string
}

// DefaultShaper uses the <thought> marker pair.
func DefaultShaper() Shaper {
	return Shaper{Open: ThoughtOpen, Close: ThoughtClose}
}

// Shape splits raw with the default marker pair.
func Shape(raw string) Shaped {
	return DefaultShaper().Shape(raw)
}

// Shape takes the reasoning from the first complete block and removes every
// complete block from the final answer. Removal repeats until no block is
// left, so shaping an already shaped answer changes nothing.
func (s Shaper) Shape(raw string) Shaped {
	start, end, ok := s.findBlock(raw)
	if !ok {
		return Shaped{Final: strings.TrimSpace(raw)}
	}

	reasoning := strings.TrimSpace(raw[start+len(s.Open) : end])

	rest := raw
	for ok {
		rest = rest[:start] + rest[end+len(s.Close):]
		start, end, ok = s.findBlock(rest)
	}

	return Shaped{
		Reasoning:    reasoning,
		HasReasoning: true,
		Final:        strings.TrimSpace(rest),
	}
}

// findBlock returns the offsets of the first opening marker and of the first
// closing marker after it.
func (s Shaper) findBlock(text string) (start, end int, ok bool) {
	if s.Open == "" || s.Close == "" {
		return 0, 0, false
	}

	start = strings.Index(text, s.Open)
	if start == -1 {
		return 0, 0, false
	}

	rel := strings.Index(text[start+len(s.Open):], s.Close)
	if rel == -1 {
		return 0, 0, false
	}
	return start, start + len(s.Open) + rel, true
}
