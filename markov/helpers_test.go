package markov

import (
	"github.com/felipetovarhenao/markov-feedback/music"
)

var (
	c4 = music.Note{Pitch: 60, Velocity: 80, Duration: 480, Lag: 480}
	d4 = music.Note{Pitch: 62, Velocity: 80, Duration: 480, Lag: 480}
	e4 = music.Note{Pitch: 64, Velocity: 80, Duration: 480, Lag: 480}
	f4 = music.Note{Pitch: 65, Velocity: 80, Duration: 480, Lag: 480}
	g4 = music.Note{Pitch: 67, Velocity: 80, Duration: 480, Lag: 480}
	a4 = music.Note{Pitch: 69, Velocity: 80, Duration: 480, Lag: 480}
)

func sequence(notes ...music.Note) music.Sequence {
	return music.FromNotes(notes)
}

// fixedSource always returns the same value and counts how often it
// was asked.
type fixedSource struct {
	value float64
	calls int
}

func (s *fixedSource) Float64() float64 {
	s.calls++
	return s.value
}

func melody() []music.Sequence {
	return []music.Sequence{
		sequence(c4, d4, e4, c4, d4, g4, e4, d4, c4, d4, e4, f4, g4, a4, g4, e4, c4),
		sequence(g4, a4, g4, f4, e4, d4, c4, e4, g4, c4),
	}
}
