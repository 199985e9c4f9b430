package music

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"sort"

	log "github.com/sirupsen/logrus"
)

// Resolution is the number of ticks per quarter note that all
// sequences are expressed in.
const Resolution = 960

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note carries the pitch, velocity, duration and lag of a single press.
// It is the unit that is matched and generated by the models, so it
// never carries an absolute position.
type Note struct {
	Pitch    int `json:"pitch"`
	Velocity int `json:"velocity"`
	// Duration is how long the key is held, in ticks
	Duration int `json:"duration"`
	// Lag is the number of ticks until the next note starts
	Lag int `json:"lag"`
}

// Name returns the scientific pitch name, e.g. C4 for 60.
func (n Note) Name() string {
	return fmt.Sprintf("%s%d", noteNames[((n.Pitch%12)+12)%12], n.Pitch/12-1)
}

func (n Note) String() string {
	return fmt.Sprintf("%s(v%d d%d l%d)", n.Name(), n.Velocity, n.Duration, n.Lag)
}

// Valid reports whether the note can be played back.
func (n Note) Valid() bool {
	return n.Pitch >= 0 && n.Pitch <= 127 &&
		n.Velocity >= 0 && n.Velocity <= 127 &&
		n.Duration > 0 && n.Lag >= 0
}

// Event is a note placed in time.
type Event struct {
	Note
	Start int `json:"start"`
}

// Sequence is an ordered list of events coming from one source.
type Sequence []Event

func (s Sequence) Len() int {
	return len(s)
}

func (s Sequence) Less(i, j int) bool {
	if s[i].Start == s[j].Start {
		return s[i].Pitch < s[j].Pitch
	}
	return s[i].Start < s[j].Start
}

func (s Sequence) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Notes strips the timing from the events.
func (s Sequence) Notes() []Note {
	notes := make([]Note, len(s))
	for i, e := range s {
		notes[i] = e.Note
	}
	return notes
}

// Pitches is mostly useful for logging and tests.
func (s Sequence) Pitches() []int {
	pitches := make([]int, len(s))
	for i, e := range s {
		pitches[i] = e.Pitch
	}
	return pitches
}

// End returns the tick at which the last note is released.
func (s Sequence) End() (end int) {
	for _, e := range s {
		if e.Start+e.Duration > end {
			end = e.Start + e.Duration
		}
	}
	return
}

// FromEvents sorts the events by start and fills in the lag of
// every note. The last note lags by its own duration.
func FromEvents(events []Event) Sequence {
	s := make(Sequence, len(events))
	copy(s, events)
	sort.Stable(s)
	for i := range s {
		if i == len(s)-1 {
			s[i].Lag = s[i].Duration
		} else {
			s[i].Lag = s[i+1].Start - s[i].Start
		}
	}
	return s
}

// FromNotes lays out notes one after the other using their lag,
// starting at tick 0.
func FromNotes(notes []Note) Sequence {
	s := make(Sequence, len(notes))
	start := 0
	for i, n := range notes {
		s[i] = Event{Note: n, Start: start}
		start += n.Lag
	}
	return s
}

// Count returns the total number of events in a set of sequences.
func Count(sequences []Sequence) (total int) {
	for _, s := range sequences {
		total += len(s)
	}
	return
}

// Open loads sequences previously written with Save.
func Open(filename string) ([]Sequence, error) {
	logger := log.WithFields(log.Fields{
		"function": "music.Open",
	})
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var sequences []Sequence
	err = json.Unmarshal(b, &sequences)
	if err != nil {
		return nil, err
	}
	logger.Debugf("loaded %d sequences from %s", len(sequences), filename)
	return sequences, nil
}

// Save writes the sequences as JSON.
func Save(filename string, sequences []Sequence) (err error) {
	b, err := json.Marshal(sequences)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(filename, b, 0644)
}
