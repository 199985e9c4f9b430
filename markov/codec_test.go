package markov

import (
	"encoding/json"
	"testing"

	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyer(t *testing.T) {
	k := NewKeyer()
	context := []music.Note{c4, {Pitch: 0, Velocity: 0, Duration: 1, Lag: 0}, g4}
	key, err := k.Key(context)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(key), keyMinLength)

	other, err := k.Key([]music.Note{c4, g4})
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	decoded, err := k.Context(key)
	require.NoError(t, err)
	assert.Equal(t, context, decoded)

	empty, err := k.Key(nil)
	require.NoError(t, err)
	assert.Equal(t, "", empty)

	_, err = k.Key([]music.Note{{Pitch: 60, Velocity: 80, Duration: 0}})
	assert.True(t, errors.Is(err, ErrInvalidNote))
}

func TestModelRoundTrip(t *testing.T) {
	m, err := Train(melody(), 3)
	require.NoError(t, err)

	b, err := json.Marshal(m)
	require.NoError(t, err)

	var restored Model
	require.NoError(t, json.Unmarshal(b, &restored))

	assert.Equal(t, m.Order(), restored.Order())
	assert.Equal(t, m.Predictability(), restored.Predictability())
	assert.Equal(t, m.Vocabulary(), restored.Vocabulary())
	assert.Equal(t, m.Seed(), restored.Seed())
	assert.Equal(t, m.Contexts(), restored.Contexts())
	for _, context := range m.Contexts() {
		assert.Equal(t, m.Predict(context).Candidates(), restored.Predict(context).Candidates())
		for j := 0; j < len(context); j++ {
			suffix := context[j:]
			assert.Equal(t, m.Predict(suffix).Candidates(), restored.Predict(suffix).Candidates())
		}
	}
	assert.Equal(t, m.Predict(nil).Candidates(), restored.Predict(nil).Candidates())

	again, err := json.Marshal(&restored)
	require.NoError(t, err)
	assert.JSONEq(t, string(b), string(again))
}

func TestModelRoundTripSampling(t *testing.T) {
	m, err := Train(melody(), 2)
	require.NoError(t, err)
	b, err := json.Marshal(m)
	require.NoError(t, err)
	var restored Model
	require.NoError(t, json.Unmarshal(b, &restored))

	draw := func(p Predictor) []music.Note {
		s := NewSampler(NewSource(7))
		context := m.Seed()
		var out []music.Note
		for i := 0; i < 40; i++ {
			note, _, err := s.Sample(p, context, nil)
			require.NoError(t, err)
			out = append(out, note)
			context = append(context[1:], note)
		}
		return out
	}
	assert.Equal(t, draw(m), draw(&restored))
}

func TestUnmarshalErrors(t *testing.T) {
	var m Model
	assert.True(t, errors.Is(json.Unmarshal([]byte(`{"order":0,"table":[]}`), &m), ErrInvalidOrder))
	assert.True(t, errors.Is(json.Unmarshal([]byte(`{"order":2,"table":[]}`), &m), ErrEmptyTrainingSet))
	assert.Error(t, json.Unmarshal([]byte(`{"order":2,"table":[{"context":"!!","next":[]}]}`), &m))

	_, err := json.Marshal(&Model{})
	assert.Error(t, err)

	// contexts must be as long as the stored order
	trained, err := Train(melody(), 2)
	require.NoError(t, err)
	b, err := json.Marshal(trained)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &raw))
	raw["order"] = 3
	b, err = json.Marshal(raw)
	require.NoError(t, err)
	err = json.Unmarshal(b, &m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 3")
}
