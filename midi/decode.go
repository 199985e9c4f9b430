// Package midi converts between standard MIDI files and note
// sequences.
package midi

import (
	"bytes"
	"io"
	"sort"

	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var (
	// ErrInvalidFile is returned when the data is not a standard MIDI
	// file.
	ErrInvalidFile = errors.New("midi: invalid file")
	// ErrUnsupportedTimeFormat is returned for SMPTE timed files.
	ErrUnsupportedTimeFormat = errors.New("midi: only metric time is supported")
	// ErrNoNotes is returned when a file holds no notes at all.
	ErrNoNotes = errors.New("midi: file has no notes")
)

type noteKey struct {
	channel uint8
	key     uint8
}

type started struct {
	tick     int64
	velocity uint8
}

// DecodeBytes is Decode on an in-memory file.
func DecodeBytes(b []byte) ([]music.Sequence, error) {
	return Decode(bytes.NewReader(b))
}

// Decode reads a standard MIDI file and returns one sequence per track
// that has notes. Ticks are rescaled to music.Resolution. Repeated
// presses of a held key are released first in, first out; notes still
// held at the end of a track are released there.
func Decode(r io.Reader) ([]music.Sequence, error) {
	logger := log.WithFields(log.Fields{
		"function": "midi.Decode",
	})
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidFile, err.Error())
	}
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrUnsupportedTimeFormat
	}
	resolution := int64(ticks.Resolution())
	if resolution <= 0 {
		return nil, errors.Errorf("midi: bad resolution %d", resolution)
	}
	rescale := func(tick int64) int {
		return int((tick*music.Resolution + resolution/2) / resolution)
	}

	var sequences []music.Sequence
	for i, track := range s.Tracks {
		var abs int64
		held := make(map[noteKey][]started)
		var events []music.Event
		release := func(k noteKey, on started, at int64) {
			duration := rescale(at - on.tick)
			if duration < 1 {
				duration = 1
			}
			events = append(events, music.Event{
				Note: music.Note{
					Pitch:    int(k.key),
					Velocity: int(on.velocity),
					Duration: duration,
				},
				Start: rescale(on.tick),
			})
		}

		for _, ev := range track {
			abs += int64(ev.Delta)
			msg := gomidi.Message(ev.Message)
			var channel, key, velocity uint8
			switch {
			case msg.GetNoteStart(&channel, &key, &velocity):
				k := noteKey{channel, key}
				held[k] = append(held[k], started{tick: abs, velocity: velocity})
			case msg.GetNoteEnd(&channel, &key):
				k := noteKey{channel, key}
				queue := held[k]
				if len(queue) == 0 {
					continue
				}
				release(k, queue[0], abs)
				held[k] = queue[1:]
			}
		}

		keys := make([]noteKey, 0, len(held))
		for k := range held {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(a, b int) bool {
			if keys[a].channel == keys[b].channel {
				return keys[a].key < keys[b].key
			}
			return keys[a].channel < keys[b].channel
		})
		for _, k := range keys {
			for _, on := range held[k] {
				release(k, on, abs)
			}
		}

		if len(events) == 0 {
			continue
		}
		logger.Debugf("track %d: %d notes", i, len(events))
		sequences = append(sequences, music.FromEvents(events))
	}
	if len(sequences) == 0 {
		return nil, ErrNoNotes
	}
	return sequences, nil
}
