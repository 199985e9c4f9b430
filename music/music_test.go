package music

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	assert.Equal(t, "C4", Note{Pitch: 60}.Name())
	assert.Equal(t, "D4", Note{Pitch: 62}.Name())
	assert.Equal(t, "A0", Note{Pitch: 21}.Name())
	assert.Equal(t, "C-1", Note{Pitch: 0}.Name())
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		note Note
		want bool
	}{
		{"middle C", Note{Pitch: 60, Velocity: 80, Duration: 480, Lag: 480}, true},
		{"chord member", Note{Pitch: 64, Velocity: 80, Duration: 480, Lag: 0}, true},
		{"pitch too high", Note{Pitch: 128, Velocity: 80, Duration: 480}, false},
		{"negative velocity", Note{Pitch: 60, Velocity: -1, Duration: 480}, false},
		{"zero duration", Note{Pitch: 60, Velocity: 80, Duration: 0}, false},
		{"negative lag", Note{Pitch: 60, Velocity: 80, Duration: 10, Lag: -5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.note.Valid())
		})
	}
}

func TestFromEvents(t *testing.T) {
	s := FromEvents([]Event{
		{Note: Note{Pitch: 64, Velocity: 90, Duration: 240}, Start: 480},
		{Note: Note{Pitch: 60, Velocity: 90, Duration: 480}, Start: 0},
		{Note: Note{Pitch: 67, Velocity: 90, Duration: 120}, Start: 480},
	})
	require.Len(t, s, 3)
	assert.Equal(t, []int{60, 64, 67}, s.Pitches())
	assert.Equal(t, 480, s[0].Lag)
	assert.Equal(t, 0, s[1].Lag)
	assert.Equal(t, 120, s[2].Lag, "last note lags by its duration")
	assert.Equal(t, 720, s.End())
}

func TestFromNotes(t *testing.T) {
	s := FromNotes([]Note{
		{Pitch: 60, Velocity: 80, Duration: 100, Lag: 120},
		{Pitch: 62, Velocity: 80, Duration: 100, Lag: 0},
		{Pitch: 64, Velocity: 80, Duration: 100, Lag: 240},
	})
	assert.Equal(t, 0, s[0].Start)
	assert.Equal(t, 120, s[1].Start)
	assert.Equal(t, 120, s[2].Start)
	assert.Equal(t, []Note{s[0].Note, s[1].Note, s[2].Note}, s.Notes())
}

func TestOpenSave(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "sequences.json")
	sequences := []Sequence{
		FromEvents([]Event{{Note: Note{Pitch: 60, Velocity: 80, Duration: 480}, Start: 0}}),
		FromEvents([]Event{{Note: Note{Pitch: 62, Velocity: 70, Duration: 240}, Start: 960}}),
	}
	require.NoError(t, Save(filename, sequences))

	loaded, err := Open(filename)
	require.NoError(t, err)
	assert.Equal(t, sequences, loaded)
	assert.Equal(t, 2, Count(loaded))

	_, err = Open(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
