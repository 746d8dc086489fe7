package chat

// Transcript is the ordered, append-only turn history of one session.
//
// The first turn, when present, is the session's only system turn. It can
// only be set through NewTranscript or Reset; Append drops system turns so
// that the directive never appears mid-conversation.
type Transcript struct {
	turns []Turn
}

// NewTranscript starts a transcript. An empty directive yields an empty
// transcript.
func NewTranscript(directive string) *Transcript {
	t := &Transcript{}
	if directive != "" {
		t.Reset(directive)
	}
	return t
}

// Append adds a user or assistant turn to the end.
func (t *Transcript) Append(turn Turn) {
	if turn.Role == RoleSystem {
		return
	}
	t.turns = append(t.turns, turn)
}

// Reset discards every turn and reinitialises with a single system turn.
func (t *Transcript) Reset(directive string) {
	t.turns = make([]Turn, 1, 16)
	t.turns[0] = SystemTurn(directive)
}

// All returns a copy of the full ordered sequence, system turn included.
func (t *Transcript) All() []Turn {
	copied := make([]Turn, len(t.turns))
	copy(copied, t.turns)
	return copied
}

// Visible returns the turns shown to the user.
func (t *Transcript) Visible() []Turn {
	visible := make([]Turn, 0, len(t.turns))
	for _, turn := range t.turns {
		if turn.Role == RoleSystem {
			continue
		}
		visible = append(visible, turn)
	}
	return visible
}

// Len reports the number of stored turns, system turn included.
func (t *Transcript) Len() int {
	return len(t.turns)
}
