package markov

import "github.com/pkg/errors"

var (
	// ErrInvalidOrder is returned when a model is asked for an order below 1.
	ErrInvalidOrder = errors.New("markov: order must be at least 1")
	// ErrEmptyTrainingSet is returned when there are not enough events
	// to build a single context of the requested order.
	ErrEmptyTrainingSet = errors.New("markov: not enough events to train")
	// ErrNoTrainingData is returned when sampling falls back past the
	// empty context and the model never saw a single note.
	ErrNoTrainingData = errors.New("markov: no training data")
	// ErrCancelled is returned when the caller's context is done.
	ErrCancelled = errors.New("markov: cancelled")
	// ErrInvalidNote is returned for notes that cannot be keyed.
	ErrInvalidNote = errors.New("markov: invalid note")
	// ErrEmptyDistribution is returned by Draw on an empty distribution.
	ErrEmptyDistribution = errors.New("markov: empty distribution")
)

// Cancelled wraps the reason a context finished into ErrCancelled.
func Cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return errors.WithMessage(ErrCancelled, cause.Error())
}
