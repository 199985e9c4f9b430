package markov

import (
	"math/rand"
	"time"

	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Source is the randomness used for sampling. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewSource returns a seeded source. A seed of 0 seeds from the clock.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Predictor is what the sampler needs from a model.
type Predictor interface {
	Predict(context []music.Note) Distribution
	Order() int
}

// Sampler draws notes from distributions.
type Sampler struct {
	rand Source
}

// NewSampler wraps a source of randomness.
func NewSampler(source Source) *Sampler {
	return &Sampler{rand: source}
}

// Draw picks a candidate with probability proportional to its weight.
// Candidates are walked in their stored order so a given source always
// yields the same note.
func (s *Sampler) Draw(d Distribution) (music.Note, error) {
	total := d.Total()
	if total <= 0 {
		return music.Note{}, ErrEmptyDistribution
	}
	r := s.rand.Float64() * total
	var last music.Note
	for _, c := range d.candidates {
		if c.Weight <= 0 {
			continue
		}
		last = c.Note
		if r < c.Weight {
			return c.Note, nil
		}
		r -= c.Weight
	}
	// rounding left r just above the last weight
	return last, nil
}

// Sample predicts the next note for the context, passes the
// distribution through transform (which may be nil) and draws from
// it. When the context was never seen, the oldest note is dropped and
// the shorter suffix is tried, down to the empty context which is
// uniform over every note the model saw. It returns the number of
// notes dropped, which is never more than the model's order.
func (s *Sampler) Sample(m Predictor, context []music.Note, transform func(Distribution) Distribution) (music.Note, int, error) {
	logger := log.WithFields(log.Fields{
		"function": "Sampler.Sample",
	})
	if len(context) > m.Order() {
		context = context[len(context)-m.Order():]
	}
	fallbacks := 0
	for length := len(context); length >= 0; length-- {
		d := m.Predict(context[len(context)-length:])
		if transform != nil {
			d = transform(d)
		}
		if !d.Empty() {
			note, err := s.Draw(d)
			if err != nil {
				return music.Note{}, fallbacks, err
			}
			if fallbacks > 0 {
				logger.Debugf("fell back %d times to a context of %d", fallbacks, length)
			}
			return note, fallbacks, nil
		}
		if length > 0 {
			fallbacks++
		}
	}
	return music.Note{}, fallbacks, errors.Wrapf(ErrNoTrainingData, "after %d fallbacks", fallbacks)
}
