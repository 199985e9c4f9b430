package markov

import (
	"github.com/felipetovarhenao/markov-feedback/music"
)

// Candidate is a possible next note and its weight.
type Candidate struct {
	Note   music.Note `json:"note"`
	Weight float64    `json:"weight"`
}

// Distribution is a weighted set of next notes. Candidates keep the
// order in which they were first added so that sampling is
// reproducible.
type Distribution struct {
	candidates []Candidate
	index      map[music.Note]int
}

// NewDistribution builds a distribution from candidates, merging
// repeated notes.
func NewDistribution(candidates ...Candidate) Distribution {
	var d Distribution
	for _, c := range candidates {
		d.Add(c.Note, c.Weight)
	}
	return d
}

// Add increments the weight of a note.
func (d *Distribution) Add(note music.Note, weight float64) {
	if d.index == nil {
		d.index = make(map[music.Note]int)
	}
	if i, ok := d.index[note]; ok {
		d.candidates[i].Weight += weight
		return
	}
	d.index[note] = len(d.candidates)
	d.candidates = append(d.candidates, Candidate{Note: note, Weight: weight})
}

// Len is the number of candidates.
func (d Distribution) Len() int {
	return len(d.candidates)
}

// Empty reports whether there is nothing to draw from.
func (d Distribution) Empty() bool {
	return d.Total() <= 0
}

// Candidates returns a copy of the candidates in insertion order.
func (d Distribution) Candidates() []Candidate {
	out := make([]Candidate, len(d.candidates))
	copy(out, d.candidates)
	return out
}

// Weight returns the weight of a note, 0 if absent.
func (d Distribution) Weight(note music.Note) float64 {
	if i, ok := d.index[note]; ok {
		return d.candidates[i].Weight
	}
	return 0
}

// Total is the sum of all weights.
func (d Distribution) Total() (total float64) {
	for _, c := range d.candidates {
		total += c.Weight
	}
	return
}

// Normalize returns a copy whose weights sum to 1.
func (d Distribution) Normalize() Distribution {
	total := d.Total()
	out := Distribution{
		candidates: make([]Candidate, len(d.candidates)),
		index:      make(map[music.Note]int, len(d.candidates)),
	}
	for i, c := range d.candidates {
		if total > 0 {
			c.Weight = c.Weight / total
		}
		out.candidates[i] = c
		out.index[c.Note] = i
	}
	return out
}

func (d Distribution) clone() Distribution {
	return NewDistribution(d.candidates...)
}
