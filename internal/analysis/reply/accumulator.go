package reply

import "strings"

// CursorMarker is appended to in-progress text while a reply streams.
const CursorMarker = "▌"

// Accumulator concatenates streamed fragments in arrival order.
type Accumulator struct {
	marker string
	text   strings.Builder
	count  int
}

// NewAccumulator returns an Accumulator rendering with marker; an empty
// marker falls back to CursorMarker.
func NewAccumulator(marker string) *Accumulator {
	if marker == "" {
		marker = CursorMarker
	}
	return &Accumulator{marker: marker}
}

// Add appends fragment and returns the in-progress render.
func (a *Accumulator) Add(fragment string) string {
	a.text.WriteString(fragment)
	a.count++
	return a.text.String() + a.marker
}

// Text returns the concatenation so far without the marker.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Fragments reports how many fragments were added.
func (a *Accumulator) Fragments() int {
	return a.count
}
