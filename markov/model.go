package markov

import (
	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Model is a Markov model of a fixed order. The primary table only
// holds contexts of exactly Order notes; shorter suffixes are kept in
// backoff tables derived from it so the sampler can fall back without
// retraining. A Model is never modified after it is trained.
type Model struct {
	order          int
	predictability int
	keys           *Keyer
	table          *Table
	// backoff[j] holds suffixes of length j, for 0 < j < order
	backoff    []*Table
	vocabulary []music.Note
	seed       []music.Note
}

// Train builds a model of the given order from scratch. Contexts never
// span two sequences.
func Train(sequences []music.Sequence, order int) (*Model, error) {
	logger := log.WithFields(log.Fields{
		"function": "markov.Train",
	})
	if order < 1 {
		return nil, errors.Wrapf(ErrInvalidOrder, "got %d", order)
	}
	total := music.Count(sequences)
	if total < order+1 {
		return nil, errors.Wrapf(ErrEmptyTrainingSet, "%d events for order %d", total, order)
	}

	m := &Model{
		order:          order,
		predictability: order,
		keys:           NewKeyer(),
		table:          newTable(order),
	}
	seen := make(map[music.Note]bool)
	for _, sequence := range sequences {
		for _, e := range sequence {
			if !e.Valid() {
				return nil, errors.Wrapf(ErrInvalidNote, "%+v", e)
			}
			if !seen[e.Note] {
				seen[e.Note] = true
				m.vocabulary = append(m.vocabulary, e.Note)
			}
		}
	}

	logger.Debugf("determining transitions for %d events at order %d", total, order)
	for _, sequence := range sequences {
		notes := sequence.Notes()
		for i := 0; i+order < len(notes); i++ {
			context := notes[i : i+order]
			key, err := m.keys.Key(context)
			if err != nil {
				return nil, err
			}
			m.table.add(key, context, notes[i+order], 1)
		}
		if len(notes) > 0 {
			m.seed = tail(notes, order)
		}
	}
	if m.table.Len() == 0 {
		return nil, errors.Wrapf(ErrEmptyTrainingSet, "no sequence has more than %d events", order)
	}
	if err := m.deriveBackoff(); err != nil {
		return nil, err
	}
	logger.Debugf("learned %d contexts over %d notes", m.table.Len(), len(m.vocabulary))
	return m, nil
}

// Retrain trains a new model one order higher than m, keeping its
// predictability. m itself is left untouched.
func (m *Model) Retrain(sequences []music.Sequence) (*Model, error) {
	next, err := Train(sequences, m.Order()+1)
	if err != nil {
		return nil, err
	}
	if m.Predictability() > 0 {
		next.predictability = m.Predictability()
	}
	return next, nil
}

func (m *Model) deriveBackoff() error {
	m.backoff = make([]*Table, m.order)
	for j := 1; j < m.order; j++ {
		m.backoff[j] = newTable(j)
	}
	for _, key := range m.table.keys {
		context := m.table.contexts[key]
		row := m.table.rows[key]
		for j := 1; j < m.order; j++ {
			suffix := context[m.order-j:]
			suffixKey, err := m.keys.Key(suffix)
			if err != nil {
				return err
			}
			for _, c := range row.candidates {
				m.backoff[j].add(suffixKey, suffix, c.Note, c.Weight)
			}
		}
	}
	return nil
}

// Predict returns the normalized distribution of notes that followed
// the context. A context of Order notes is an exact lookup; shorter
// ones are looked up by suffix and the empty context is uniform over
// every note seen in training. Unseen contexts give an empty
// distribution.
func (m *Model) Predict(context []music.Note) Distribution {
	if m == nil {
		return Distribution{}
	}
	if len(context) > m.order {
		context = context[len(context)-m.order:]
	}
	if len(context) == 0 {
		var uniform Distribution
		for _, n := range m.vocabulary {
			uniform.Add(n, 1)
		}
		return uniform.Normalize()
	}
	t := m.tableFor(len(context))
	if t == nil {
		return Distribution{}
	}
	key, err := m.keys.Key(context)
	if err != nil {
		return Distribution{}
	}
	row, ok := t.rows[key]
	if !ok {
		return Distribution{}
	}
	return row.Normalize()
}

func (m *Model) tableFor(length int) *Table {
	if length == m.order {
		return m.table
	}
	if length > 0 && length < len(m.backoff) {
		return m.backoff[length]
	}
	return nil
}

// Order is the number of notes in a context.
func (m *Model) Order() int {
	if m == nil {
		return 0
	}
	return m.order
}

// Predictability is the order of the first, unboosted model this one
// descends from.
func (m *Model) Predictability() int {
	if m == nil {
		return 0
	}
	return m.predictability
}

// Len is the number of distinct contexts.
func (m *Model) Len() int {
	if m == nil || m.table == nil {
		return 0
	}
	return m.table.Len()
}

// Table gives read access to the transition counts.
func (m *Model) Table() *Table {
	if m == nil || m.table == nil {
		return newTable(0)
	}
	return m.table
}

// Contexts returns every context of the model in observation order.
func (m *Model) Contexts() [][]music.Note {
	t := m.Table()
	contexts := make([][]music.Note, 0, t.Len())
	for _, key := range t.keys {
		contexts = append(contexts, t.Context(key))
	}
	return contexts
}

// Vocabulary returns every distinct note seen in training.
func (m *Model) Vocabulary() []music.Note {
	if m == nil {
		return nil
	}
	out := make([]music.Note, len(m.vocabulary))
	copy(out, m.vocabulary)
	return out
}

// Seed is the tail of the last training sequence, used to start
// generating.
func (m *Model) Seed() []music.Note {
	if m == nil {
		return nil
	}
	out := make([]music.Note, len(m.seed))
	copy(out, m.seed)
	return out
}

func tail(notes []music.Note, n int) []music.Note {
	if len(notes) < n {
		n = len(notes)
	}
	out := make([]music.Note, n)
	copy(out, notes[len(notes)-n:])
	return out
}
