package markov

import (
	"github.com/felipetovarhenao/markov-feedback/music"
)

// Table maps contexts of a fixed length to the counts of the notes
// that followed them. Contexts are kept in the order they were first
// observed.
type Table struct {
	length   int
	keys     []string
	contexts map[string][]music.Note
	rows     map[string]*Distribution
}

func newTable(length int) *Table {
	return &Table{
		length:   length,
		contexts: make(map[string][]music.Note),
		rows:     make(map[string]*Distribution),
	}
}

// ContextLength is the number of notes in every context of the table.
func (t *Table) ContextLength() int {
	return t.length
}

// Len is the number of distinct contexts.
func (t *Table) Len() int {
	return len(t.keys)
}

// Keys returns the context keys in observation order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.keys))
	copy(keys, t.keys)
	return keys
}

// Context returns the notes behind a key.
func (t *Table) Context(key string) []music.Note {
	context := t.contexts[key]
	out := make([]music.Note, len(context))
	copy(out, context)
	return out
}

// Row returns the raw counts for a key.
func (t *Table) Row(key string) (Distribution, bool) {
	row, ok := t.rows[key]
	if !ok {
		return Distribution{}, false
	}
	return row.clone(), true
}

func (t *Table) add(key string, context []music.Note, next music.Note, weight float64) {
	row, ok := t.rows[key]
	if !ok {
		row = &Distribution{}
		t.rows[key] = row
		stored := make([]music.Note, len(context))
		copy(stored, context)
		t.contexts[key] = stored
		t.keys = append(t.keys, key)
	}
	row.Add(next, weight)
}
