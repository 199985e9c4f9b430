package markov

import (
	"testing"

	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainAlternating(t *testing.T) {
	pattern := []music.Sequence{
		sequence(c4, d4, c4, d4, c4, d4),
		sequence(c4, d4, c4, d4, c4, d4),
	}
	m, err := Train(pattern, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Order())
	assert.Equal(t, 1, m.Predictability())
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, [][]music.Note{{c4}, {d4}}, m.Contexts())

	afterC := m.Predict([]music.Note{c4})
	require.Equal(t, 1, afterC.Len())
	assert.InDelta(t, 1.0, afterC.Weight(d4), 1e-9)

	afterD := m.Predict([]music.Note{d4})
	require.Equal(t, 1, afterD.Len())
	assert.InDelta(t, 1.0, afterD.Weight(c4), 1e-9)

	assert.Equal(t, []music.Note{c4, d4}, m.Vocabulary())
	assert.Equal(t, []music.Note{d4}, m.Seed())
}

func TestTrainErrors(t *testing.T) {
	tests := []struct {
		name      string
		sequences []music.Sequence
		order     int
		want      error
	}{
		{"zero order", melody(), 0, ErrInvalidOrder},
		{"negative order", melody(), -3, ErrInvalidOrder},
		{"no sequences", nil, 1, ErrEmptyTrainingSet},
		{"too few events", []music.Sequence{sequence(c4, d4)}, 2, ErrEmptyTrainingSet},
		{"no sequence long enough", []music.Sequence{sequence(c4, d4), sequence(e4, f4)}, 2, ErrEmptyTrainingSet},
		{"bad note", []music.Sequence{sequence(c4, music.Note{Pitch: 200, Velocity: 10, Duration: 1}, d4)}, 1, ErrInvalidNote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Train(tt.sequences, tt.order)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTrainIsNotCumulative(t *testing.T) {
	once, err := Train(melody(), 2)
	require.NoError(t, err)
	_, err = Train(melody(), 2)
	require.NoError(t, err)
	twice, err := Train(melody(), 2)
	require.NoError(t, err)

	assert.Equal(t, once.Contexts(), twice.Contexts())
	for _, context := range once.Contexts() {
		assert.Equal(t, once.Predict(context).Candidates(), twice.Predict(context).Candidates())
	}
}

func TestContextsStayInsideSequences(t *testing.T) {
	m, err := Train([]music.Sequence{sequence(c4, d4), sequence(e4, f4)}, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]music.Note{{c4}, {e4}}, m.Contexts())
	assert.True(t, m.Predict([]music.Note{d4}).Empty(), "d4 ends a sequence and must not lead into e4")
}

func TestPredictIsNormalized(t *testing.T) {
	for order := 1; order <= 3; order++ {
		m, err := Train(melody(), order)
		require.NoError(t, err)
		for _, context := range m.Contexts() {
			require.Len(t, context, order)
			d := m.Predict(context)
			assert.InDelta(t, 1.0, d.Total(), 1e-9)
			assert.InDelta(t, 1.0, Reinforce(d, 1, 0.66).Total(), 1e-9)
		}
	}
}

func TestPredictCounts(t *testing.T) {
	m, err := Train([]music.Sequence{sequence(c4, d4, c4, e4, c4, d4)}, 1)
	require.NoError(t, err)
	d := m.Predict([]music.Note{c4})
	assert.InDelta(t, 2.0/3.0, d.Weight(d4), 1e-9)
	assert.InDelta(t, 1.0/3.0, d.Weight(e4), 1e-9)

	row, ok := m.Table().Row(m.Table().Keys()[0])
	require.True(t, ok)
	assert.Equal(t, 3.0, row.Total(), "raw counts are kept in the table")
}

func TestPredictUnseen(t *testing.T) {
	m, err := Train(melody(), 2)
	require.NoError(t, err)
	assert.True(t, m.Predict([]music.Note{a4, a4}).Empty())
}

func TestPredictBackoff(t *testing.T) {
	m, err := Train([]music.Sequence{sequence(c4, d4, e4, c4, d4, f4)}, 3)
	require.NoError(t, err)

	// (c4 d4 e4)->c4, (d4 e4 c4)->d4, (e4 c4 d4)->f4
	suffix := m.Predict([]music.Note{e4})
	assert.InDelta(t, 1.0, suffix.Weight(c4), 1e-9)
	assert.InDelta(t, 1.0, m.Predict([]music.Note{d4}).Weight(f4), 1e-9)

	pair := m.Predict([]music.Note{c4, d4})
	assert.InDelta(t, 1.0, pair.Weight(f4), 1e-9)

	uniform := m.Predict(nil)
	require.Equal(t, 4, uniform.Len())
	for _, c := range uniform.Candidates() {
		assert.InDelta(t, 0.25, c.Weight, 1e-9)
	}

	longer := m.Predict([]music.Note{g4, c4, d4, e4})
	assert.InDelta(t, 1.0, longer.Weight(c4), 1e-9, "only the trailing notes are used")
}

func TestRetrain(t *testing.T) {
	base, err := Train(melody(), 1)
	require.NoError(t, err)
	next, err := base.Retrain(melody())
	require.NoError(t, err)
	assert.Equal(t, 2, next.Order())
	assert.Equal(t, 1, next.Predictability())
	assert.Equal(t, 1, base.Order(), "retraining returns a new model")

	_, err = next.Retrain([]music.Sequence{sequence(c4, d4, e4)})
	assert.True(t, errors.Is(err, ErrEmptyTrainingSet))
}

func TestEmptyModel(t *testing.T) {
	var m Model
	assert.Equal(t, 0, m.Order())
	assert.Equal(t, 0, m.Len())
	assert.True(t, m.Predict(nil).Empty())
	assert.True(t, m.Predict([]music.Note{c4}).Empty())
	assert.Empty(t, m.Contexts())
}
