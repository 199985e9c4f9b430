package midi

import (
	"bytes"
	"io"
	"sort"

	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const channel = 0

type timed struct {
	tick int
	on   bool
	note music.Note
}

// Encode writes the sequence as a single track standard MIDI file at
// the given tempo in beats per minute.
func Encode(w io.Writer, sequence music.Sequence, tempo int) error {
	if tempo <= 0 {
		return errors.Errorf("midi: bad tempo %d", tempo)
	}
	timeline := make([]timed, 0, 2*len(sequence))
	for _, e := range sequence {
		if !e.Valid() {
			return errors.Errorf("midi: cannot encode %+v", e)
		}
		timeline = append(timeline,
			timed{tick: e.Start, on: true, note: e.Note},
			timed{tick: e.Start + e.Duration, on: false, note: e.Note},
		)
	}
	// releases go before presses on the same tick so a repeated key
	// is not cut short
	sort.SliceStable(timeline, func(i, j int) bool {
		if timeline[i].tick == timeline[j].tick {
			return !timeline[i].on && timeline[j].on
		}
		return timeline[i].tick < timeline[j].tick
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(music.Resolution)
	var track smf.Track
	track.Add(0, smf.MetaTempo(float64(tempo)))
	last := 0
	for _, t := range timeline {
		delta := uint32(t.tick - last)
		last = t.tick
		key := uint8(t.note.Pitch)
		if t.on {
			velocity := uint8(t.note.Velocity)
			if velocity == 0 {
				// a note on with velocity 0 would be read as a release
				velocity = 1
			}
			track.Add(delta, gomidi.NoteOn(channel, key, velocity))
		} else {
			track.Add(delta, gomidi.NoteOff(channel, key))
		}
	}
	track.Close(0)
	if err := s.Add(track); err != nil {
		return errors.Wrap(err, "adding track")
	}
	_, err := s.WriteTo(w)
	return errors.Wrap(err, "writing midi file")
}

// EncodeBytes is Encode into a buffer.
func EncodeBytes(sequence music.Sequence, tempo int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, sequence, tempo); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
