package markov

import (
	"testing"

	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraw(t *testing.T) {
	d := NewDistribution(Candidate{c4, 1}, Candidate{d4, 2}, Candidate{e4, 1})
	tests := []struct {
		value float64
		want  music.Note
	}{
		{0, c4},
		{0.24, c4},
		{0.25, d4},
		{0.74, d4},
		{0.75, e4},
		{0.9999, e4},
	}
	for _, tt := range tests {
		s := NewSampler(&fixedSource{value: tt.value})
		note, err := s.Draw(d)
		require.NoError(t, err)
		assert.Equal(t, tt.want, note, "value %v", tt.value)
	}

	_, err := NewSampler(&fixedSource{}).Draw(Distribution{})
	assert.Equal(t, ErrEmptyDistribution, err)
}

func TestDrawSkipsZeroWeights(t *testing.T) {
	d := NewDistribution(Candidate{c4, 0}, Candidate{d4, 1})
	note, err := NewSampler(&fixedSource{value: 0}).Draw(d)
	require.NoError(t, err)
	assert.Equal(t, d4, note)
}

func TestSampleExact(t *testing.T) {
	m, err := Train([]music.Sequence{sequence(c4, d4, c4, d4, c4, d4)}, 1)
	require.NoError(t, err)
	note, fallbacks, err := NewSampler(&fixedSource{value: 0.5}).Sample(m, []music.Note{c4}, Reinforcer(1, 0.66))
	require.NoError(t, err)
	assert.Equal(t, d4, note)
	assert.Equal(t, 0, fallbacks)
}

func TestSampleFallbackIsBounded(t *testing.T) {
	m, err := Train([]music.Sequence{sequence(c4, d4, e4, c4, d4, f4)}, 3)
	require.NoError(t, err)
	s := NewSampler(&fixedSource{value: 0})

	// e4 was seen as a suffix, (a4 e4) was not
	note, fallbacks, err := s.Sample(m, []music.Note{g4, a4, e4}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fallbacks)
	assert.Equal(t, c4, note)

	// nothing matches, so the draw is uniform over the vocabulary
	note, fallbacks, err = s.Sample(m, []music.Note{g4, a4, g4}, nil)
	require.NoError(t, err)
	assert.Equal(t, m.Order(), fallbacks)
	assert.Contains(t, m.Vocabulary(), note)

	// longer contexts are cut to the model's order first
	_, fallbacks, err = s.Sample(m, []music.Note{a4, a4, g4, a4, g4}, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, fallbacks, m.Order())
}

func TestSampleNoTrainingData(t *testing.T) {
	source := &fixedSource{value: 0.3}
	_, fallbacks, err := NewSampler(source).Sample(&Model{}, []music.Note{c4}, nil)
	assert.True(t, errors.Is(err, ErrNoTrainingData))
	assert.Equal(t, 0, fallbacks)
	assert.Equal(t, 0, source.calls)
}

func TestSampleIsDeterministic(t *testing.T) {
	m, err := Train(melody(), 1)
	require.NoError(t, err)
	run := func() []music.Note {
		s := NewSampler(NewSource(42))
		context := []music.Note{c4}
		var out []music.Note
		for i := 0; i < 50; i++ {
			note, _, err := s.Sample(m, context, Reinforcer(0.8, 0.66))
			require.NoError(t, err)
			out = append(out, note)
			context = []music.Note{note}
		}
		return out
	}
	assert.Equal(t, run(), run())
}
