package ai

import (
	"context"

	"github.com/felipetovarhenao/markov-feedback/markov"
	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Generator samples new sequences from a model, reinforcing unlikely
// transitions at every step.
type Generator struct {
	// Factor is the exponent applied to reinforced probabilities
	Factor float64
	// Threshold is the probability below which reinforcement applies
	Threshold float64
	// Rand is the randomness used for every draw
	Rand markov.Source
}

// Run generates length notes. The window starts at the tail of the
// model's last training sequence and slides by one note per step.
// Cancellation is checked between steps; a cancelled run returns no
// notes.
func (g *Generator) Run(ctx context.Context, model *markov.Model, length int) (music.Sequence, error) {
	logger := log.WithFields(log.Fields{
		"function": "Generator.Run",
	})
	if length <= 0 {
		return music.Sequence{}, nil
	}
	sampler := markov.NewSampler(g.Rand)
	reinforce := markov.Reinforcer(g.Factor, g.Threshold)

	window := model.Seed()
	notes := make([]music.Note, 0, length)
	fallbacks := 0
	for i := 0; i < length; i++ {
		if err := ctx.Err(); err != nil {
			return nil, markov.Cancelled(err)
		}
		note, dropped, err := sampler.Sample(model, window, reinforce)
		if err != nil {
			return nil, errors.Wrapf(err, "sampling note %d", i)
		}
		fallbacks += dropped
		notes = append(notes, note)
		window = slide(window, note, model.Order())
	}
	logger.Debugf("generated %d notes at order %d (%d fallbacks)", len(notes), model.Order(), fallbacks)
	return music.FromNotes(notes), nil
}

func slide(window []music.Note, note music.Note, order int) []music.Note {
	window = append(window, note)
	if len(window) > order {
		window = window[len(window)-order:]
	}
	return window
}
