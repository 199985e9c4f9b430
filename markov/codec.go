package markov

import (
	"encoding/json"

	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
)

type modelJSON struct {
	Order          int          `json:"order"`
	Predictability int          `json:"predictability"`
	Vocabulary     []music.Note `json:"vocabulary"`
	Seed           string       `json:"seed"`
	Table          []rowJSON    `json:"table"`
}

type rowJSON struct {
	Context string      `json:"context"`
	Next    []Candidate `json:"next"`
}

// MarshalJSON writes the order, the table with raw counts in
// observation order, the vocabulary and the seed. Backoff tables are
// not written; they are derived again on load.
func (m *Model) MarshalJSON() ([]byte, error) {
	if m == nil || m.table == nil {
		return nil, errors.Wrap(ErrEmptyTrainingSet, "cannot marshal an untrained model")
	}
	seed, err := m.keys.Key(m.seed)
	if err != nil {
		return nil, err
	}
	out := modelJSON{
		Order:          m.order,
		Predictability: m.predictability,
		Vocabulary:     m.vocabulary,
		Seed:           seed,
		Table:          make([]rowJSON, 0, m.table.Len()),
	}
	for _, key := range m.table.keys {
		out.Table = append(out.Table, rowJSON{
			Context: key,
			Next:    m.table.rows[key].Candidates(),
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a model written by MarshalJSON.
func (m *Model) UnmarshalJSON(b []byte) error {
	var in modelJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if in.Order < 1 {
		return errors.Wrapf(ErrInvalidOrder, "stored order %d", in.Order)
	}
	if len(in.Table) == 0 {
		return errors.Wrap(ErrEmptyTrainingSet, "stored table is empty")
	}
	restored := Model{
		order:          in.Order,
		predictability: in.Predictability,
		keys:           NewKeyer(),
		table:          newTable(in.Order),
		vocabulary:     in.Vocabulary,
	}
	seed, err := restored.keys.Context(in.Seed)
	if err != nil {
		return err
	}
	restored.seed = seed
	for _, row := range in.Table {
		context, err := restored.keys.Context(row.Context)
		if err != nil {
			return err
		}
		if len(context) != restored.table.ContextLength() {
			return errors.Errorf("context %q has %d notes, want %d", row.Context, len(context), restored.table.ContextLength())
		}
		for _, c := range row.Next {
			restored.table.add(row.Context, context, c.Note, c.Weight)
		}
	}
	if err := restored.deriveBackoff(); err != nil {
		return err
	}
	*m = restored
	return nil
}
