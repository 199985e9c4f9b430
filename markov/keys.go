package markov

import (
	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	hashids "github.com/speps/go-hashids"
)

const (
	keySalt      = "piano"
	keyMinLength = 8
	// fields per note in a key: pitch, velocity, duration, lag
	keyWidth = 4
)

// Keyer turns contexts into map keys and back. Keys are hashids of the
// flattened note fields, so they are short, comparable and reversible.
type Keyer struct {
	hasher *hashids.HashID
}

// NewKeyer returns a Keyer using the package salt.
func NewKeyer() *Keyer {
	data := hashids.NewData()
	data.Salt = keySalt
	data.MinLength = keyMinLength
	return &Keyer{hasher: hashids.NewWithData(data)}
}

// Key encodes a context. The empty context has the empty key.
func (k *Keyer) Key(context []music.Note) (string, error) {
	if len(context) == 0 {
		return "", nil
	}
	ints := make([]int, 0, len(context)*keyWidth)
	for _, n := range context {
		if !n.Valid() {
			return "", errors.Wrapf(ErrInvalidNote, "%+v", n)
		}
		ints = append(ints, n.Pitch, n.Velocity, n.Duration, n.Lag)
	}
	return k.hasher.Encode(ints)
}

// Context decodes a key produced by Key.
func (k *Keyer) Context(key string) ([]music.Note, error) {
	if key == "" {
		return []music.Note{}, nil
	}
	ints, err := k.hasher.DecodeWithError(key)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding key %q", key)
	}
	if len(ints)%keyWidth != 0 {
		return nil, errors.Errorf("key %q decodes to %d fields", key, len(ints))
	}
	context := make([]music.Note, len(ints)/keyWidth)
	for i := range context {
		context[i] = music.Note{
			Pitch:    ints[i*keyWidth],
			Velocity: ints[i*keyWidth+1],
			Duration: ints[i*keyWidth+2],
			Lag:      ints[i*keyWidth+3],
		}
	}
	return context, nil
}
