package ai

import (
	"context"

	"github.com/felipetovarhenao/markov-feedback/markov"
	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Booster raises the order of a model by feeding its own output back
// as the only training data of a model one order higher.
type Booster struct {
	// Steps is how many times the order is raised
	Steps int
	// Length is the number of notes generated at each step
	Length int
	// Factor and Threshold configure reinforcement of the
	// intermediate generations
	Factor    float64
	Threshold float64
	// Trace, when set, is called after every step with the generated
	// notes and the model trained on them
	Trace func(step int, generated music.Sequence, next *markov.Model)
}

// Boost trains the base model at predictability and then runs the
// feedback loop.
func (b *Booster) Boost(ctx context.Context, sequences []music.Sequence, predictability int, rng markov.Source) (*markov.Model, error) {
	base, err := markov.Train(sequences, predictability)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx, base, rng)
}

// Run starts from base and returns a model of order
// base.Order()+Steps. Any failing step aborts the loop; the model of
// the previous step is never returned in its place.
func (b *Booster) Run(ctx context.Context, base *markov.Model, rng markov.Source) (*markov.Model, error) {
	logger := log.WithFields(log.Fields{
		"function": "Booster.Run",
	})
	gen := &Generator{Factor: b.Factor, Threshold: b.Threshold, Rand: rng}
	model := base
	for step := 0; step < b.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, markov.Cancelled(err)
		}
		generated, err := gen.Run(ctx, model, b.Length)
		if err != nil {
			return nil, errors.WithMessagef(err, "boosting step %d", step+1)
		}
		next, err := model.Retrain([]music.Sequence{generated})
		if err != nil {
			return nil, errors.WithMessagef(err, "boosting step %d", step+1)
		}
		logger.Debugf("step %d/%d: order %d -> %d, %d contexts", step+1, b.Steps, model.Order(), next.Order(), next.Len())
		if b.Trace != nil {
			b.Trace(step, generated, next)
		}
		model = next
	}
	return model, nil
}
