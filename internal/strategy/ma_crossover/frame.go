package ma_crossover

import (
	"time"

	"github.com/newthinker/smacross/internal/core"
)

// Row is one timestamp of the signal frame.
type Row struct {
	Time     time.Time
	Close    float64
	ShortMA  core.NullFloat
	LongMA   core.NullFloat
	Position core.Position // undefined until both averages are defined
	Signal   core.Signal
}

// Defined reports whether both moving averages are available for the row.
func (r Row) Defined() bool {
	return r.ShortMA.Valid && r.LongMA.Valid
}

// Frame holds the moving averages, positions and transition signals for a series.
// It is always computed from scratch for a window pair and never patched in place.
type Frame struct {
	Symbol      string
	ShortWindow int
	LongWindow  int
	Rows        []Row
}

// FirstDefined returns the index of the first row with a defined position, or -1.
func (f *Frame) FirstDefined() int {
	for i, r := range f.Rows {
		if r.Position.Defined() {
			return i
		}
	}
	return -1
}

// Defined counts rows with a defined position.
func (f *Frame) Defined() int {
	n := 0
	for _, r := range f.Rows {
		if r.Position.Defined() {
			n++
		}
	}
	return n
}

// Transitions returns the rows carrying an entry or exit signal.
func (f *Frame) Transitions() []Row {
	var out []Row
	for _, r := range f.Rows {
		if r.Signal != core.SignalNone {
			out = append(out, r)
		}
	}
	return out
}
