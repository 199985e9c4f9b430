package ai

import (
	"context"
	"sync"

	"github.com/felipetovarhenao/markov-feedback/markov"
	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrBusy is returned when a pipeline is already running on the
	// improviser.
	ErrBusy = errors.New("ai: already learning")
	// ErrNotTrained is returned when generating without a base model
	// at the requested predictability.
	ErrNotTrained = errors.New("ai: learning must be finished")
)

// Params are the validated parameters of one train, boost and
// generate run.
type Params struct {
	// Predictability is the order of the base model
	Predictability int
	// BoostingSteps is the number of feedback iterations
	BoostingSteps int
	// BoostLength is the number of notes generated at each boosting
	// step; 0 means OutputLength
	BoostLength int
	// OutputLength is the number of notes in the final generation
	OutputLength int
	// Factor is the reinforcement exponent
	Factor float64
	// Threshold is the probability below which reinforcement applies
	Threshold float64
	// Seed seeds the randomness of the run; 0 seeds from the clock
	Seed int64
}

// Validate checks what the core cannot work with. Ranges offered to
// users are enforced by the config package.
func (p Params) Validate() error {
	if p.Predictability < 1 {
		return errors.Wrapf(markov.ErrInvalidOrder, "predictability %d", p.Predictability)
	}
	if p.BoostingSteps < 0 || p.BoostLength < 0 || p.OutputLength < 0 {
		return errors.Errorf("ai: negative steps or lengths in %+v", p)
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return errors.Errorf("ai: threshold %v outside [0,1]", p.Threshold)
	}
	return nil
}

func (p Params) boostLength() int {
	if p.BoostLength > 0 {
		return p.BoostLength
	}
	return p.OutputLength
}

// Result is the outcome of a successful generation.
type Result struct {
	Sequence music.Sequence
	// Model is the boosted model the sequence was sampled from
	Model *markov.Model
}

// Run trains a base model on the sequences, boosts it and generates
// the final sequence, without keeping any state.
func Run(ctx context.Context, sequences []music.Sequence, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	base, err := markov.Train(sequences, p.Predictability)
	if err != nil {
		return nil, err
	}
	return generate(ctx, base, p)
}

func generate(ctx context.Context, base *markov.Model, p Params) (*Result, error) {
	logger := log.WithFields(log.Fields{
		"function": "ai.generate",
	})
	rng := markov.NewSource(p.Seed)
	booster := &Booster{
		Steps:     p.BoostingSteps,
		Length:    p.boostLength(),
		Factor:    p.Factor,
		Threshold: p.Threshold,
	}
	model, err := booster.Run(ctx, base, rng)
	if err != nil {
		return nil, err
	}
	gen := &Generator{Factor: p.Factor, Threshold: p.Threshold, Rand: rng}
	sequence, err := gen.Run(ctx, model, p.OutputLength)
	if err != nil {
		return nil, err
	}
	logger.Infof("generated %d notes at order %d", len(sequence), model.Order())
	return &Result{Sequence: sequence, Model: model}, nil
}

// Improviser keeps the trained base model between runs and makes sure
// only one pipeline runs on it at a time.
type Improviser struct {
	// keep track of whether it is learning, so a second
	// request can be refused instead of racing the first
	isLearning bool
	base       *markov.Model
	last       *markov.Model
	sync.Mutex
}

// New returns an untrained improviser.
func New() *Improviser {
	return new(Improviser)
}

func (ai *Improviser) begin() error {
	ai.Lock()
	defer ai.Unlock()
	if ai.isLearning {
		return ErrBusy
	}
	ai.isLearning = true
	return nil
}

func (ai *Improviser) end() {
	ai.Lock()
	ai.isLearning = false
	ai.Unlock()
}

// TrainBase trains the base model and returns it. The previous base
// is replaced only when training succeeds.
func (ai *Improviser) TrainBase(ctx context.Context, sequences []music.Sequence, predictability int) (*markov.Model, error) {
	logger := log.WithFields(log.Fields{
		"function": "Improviser.TrainBase",
	})
	if err := ai.begin(); err != nil {
		return nil, err
	}
	defer ai.end()
	if err := ctx.Err(); err != nil {
		return nil, markov.Cancelled(err)
	}

	logger.Infof("training on %d sequences (%d events) at order %d", len(sequences), music.Count(sequences), predictability)
	base, err := markov.Train(sequences, predictability)
	if err != nil {
		logger.Warn(err.Error())
		return nil, err
	}
	ai.Lock()
	ai.base = base
	ai.Unlock()
	return base, nil
}

// Generate boosts the base model and samples the final sequence. The
// boosted model is kept as the last model only when the whole run
// succeeds.
func (ai *Improviser) Generate(ctx context.Context, p Params) (*Result, error) {
	logger := log.WithFields(log.Fields{
		"function": "Improviser.Generate",
	})
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := ai.begin(); err != nil {
		return nil, err
	}
	defer ai.end()

	base := ai.Base()
	if base == nil {
		return nil, ErrNotTrained
	}
	if base.Predictability() != p.Predictability {
		return nil, errors.Wrapf(ErrNotTrained, "trained at predictability %d, asked for %d", base.Predictability(), p.Predictability)
	}

	logger.Debugf("boosting %d steps from order %d", p.BoostingSteps, base.Order())
	result, err := generate(ctx, base, p)
	if err != nil {
		logger.Warn(err.Error())
		return nil, err
	}
	ai.Lock()
	ai.last = result.Model
	ai.Unlock()
	return result, nil
}

// Restore adopts a previously trained model as the base model.
func (ai *Improviser) Restore(model *markov.Model) error {
	if model == nil || model.Len() == 0 {
		return errors.Wrap(markov.ErrEmptyTrainingSet, "restoring an empty model")
	}
	if err := ai.begin(); err != nil {
		return err
	}
	defer ai.end()
	ai.Lock()
	ai.base = model
	ai.Unlock()
	return nil
}

// Forget drops the trained models, e.g. after the predictability
// changed.
func (ai *Improviser) Forget() {
	ai.Lock()
	ai.base = nil
	ai.last = nil
	ai.Unlock()
}

// Base returns the trained base model, or nil.
func (ai *Improviser) Base() *markov.Model {
	ai.Lock()
	defer ai.Unlock()
	return ai.base
}

// Model returns the model of the last successful generation, or nil.
func (ai *Improviser) Model() *markov.Model {
	ai.Lock()
	defer ai.Unlock()
	return ai.last
}

// IsTrained reports whether Generate can run.
func (ai *Improviser) IsTrained() bool {
	return ai.Base() != nil
}

// IsLearning reports whether a pipeline is running.
func (ai *Improviser) IsLearning() bool {
	ai.Lock()
	defer ai.Unlock()
	return ai.isLearning
}
