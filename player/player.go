package player

import (
	"context"
	"sync"

	"github.com/felipetovarhenao/markov-feedback/ai"
	"github.com/felipetovarhenao/markov-feedback/config"
	"github.com/felipetovarhenao/markov-feedback/markov"
	"github.com/felipetovarhenao/markov-feedback/midi"
	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/felipetovarhenao/markov-feedback/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// OutputFile is the name improvisations are offered under.
const OutputFile = "output.mid"

// Source is an uploaded MIDI file, or sequences that were decoded
// before, e.g. loaded with music.Open.
type Source struct {
	Name string
	Data []byte
	// Sequences, when set, are used instead of decoding Data
	Sequences []music.Sequence
}

// Lesson summarizes what the AI was taught.
type Lesson struct {
	Files     []string `json:"files"`
	Sequences int      `json:"sequences"`
	Events    int      `json:"events"`
	Order     int      `json:"order"`
}

// Improvisation is a generated piece, ready to be downloaded.
type Improvisation struct {
	ID       string
	FileName string
	Sequence music.Sequence
	MIDI     []byte
	// Order is the order of the boosted model it was sampled from
	Order int
	Tempo int
}

// Player is the main structure which ties the stored files and
// settings to the AI. It decodes what it is taught, trains the AI,
// and encodes the improvisations of the AI.
type Player struct {
	// AI stores the AI being used
	AI *ai.Improviser
	// Store keeps decoded files, settings and models between runs
	Store *store.Store

	settings config.Settings
	sync.RWMutex
}

// New loads the settings and the last base model from the store.
func New(st *store.Store, defaults config.Settings) (p *Player, err error) {
	logger := log.WithFields(log.Fields{
		"function": "Player.New",
	})
	if err = defaults.Validate(); err != nil {
		return
	}
	p = new(Player)
	p.Store = st
	p.AI = ai.New()
	p.settings = st.Settings(defaults)
	logger.Debugf("settings: %+v", p.settings)

	base, errLoading := st.Model(store.BaseModel)
	if errLoading != nil {
		if errLoading != store.ErrNotFound {
			logger.Warn(errLoading.Error())
		}
		return
	}
	if base.Predictability() != p.settings.Predictability {
		logger.Infof("stored model has predictability %d, settings ask for %d", base.Predictability(), p.settings.Predictability)
		return
	}
	if err = p.AI.Restore(base); err != nil {
		return
	}
	logger.Info("Loaded previous model")
	return
}

// Settings returns the current settings.
func (p *Player) Settings() config.Settings {
	p.RLock()
	defer p.RUnlock()
	return p.settings
}

// UpdateSettings validates and stores new settings. Changing the
// predictability forgets the trained model, so the AI has to be taught
// again before it can improvise.
func (p *Player) UpdateSettings(settings config.Settings) error {
	logger := log.WithFields(log.Fields{
		"function": "Player.UpdateSettings",
	})
	p.Lock()
	defer p.Unlock()
	if err := p.Store.PutSettings(settings); err != nil {
		return err
	}
	previous := p.settings
	p.settings = settings
	if previous.Predictability != settings.Predictability {
		logger.Infof("predictability changed from %d to %d, forgetting model", previous.Predictability, settings.Predictability)
		p.AI.Forget()
	}
	return p.Store.Save()
}

// decode returns the sequences of a source, decoding it only the
// first time its content is seen.
func (p *Player) decode(source Source) ([]music.Sequence, error) {
	logger := log.WithFields(log.Fields{
		"function": "Player.decode",
		"file":     source.Name,
	})
	if source.Sequences != nil {
		return source.Sequences, nil
	}
	if sequences, ok := p.Store.Sequences(source.Name, source.Data); ok {
		logger.Debug("using cached sequences")
		return sequences, nil
	}
	sequences, err := midi.DecodeBytes(source.Data)
	if err != nil {
		return nil, errors.WithMessagef(err, "decoding %s", source.Name)
	}
	if err = p.Store.PutSequences(source.Name, source.Data, sequences); err != nil {
		logger.Warn(err.Error())
	}
	return sequences, nil
}

// Teach decodes the sources and trains the AI on all of their tracks
// at the current predictability.
func (p *Player) Teach(ctx context.Context, sources []Source) (*Lesson, error) {
	logger := log.WithFields(log.Fields{
		"function": "Player.Teach",
	})
	if len(sources) == 0 {
		return nil, errors.Wrap(markov.ErrEmptyTrainingSet, "no files")
	}
	lesson := new(Lesson)
	var sequences []music.Sequence
	for _, source := range sources {
		decoded, err := p.decode(source)
		if err != nil {
			return nil, err
		}
		lesson.Files = append(lesson.Files, source.Name)
		sequences = append(sequences, decoded...)
	}
	lesson.Sequences = len(sequences)
	lesson.Events = music.Count(sequences)

	settings := p.Settings()
	logger.Infof("Sending %d files to AI", len(sources))
	base, err := p.AI.TrainBase(ctx, sequences, settings.Predictability)
	if err != nil {
		return nil, err
	}
	lesson.Order = base.Order()
	if err = p.Store.PutModel(store.BaseModel, base); err != nil {
		logger.Warn(err.Error())
	} else if err = p.Store.Save(); err != nil {
		logger.Warn(err.Error())
	}
	return lesson, nil
}

// Improvise generates an improvisation from the AI and encodes it as
// a MIDI file.
func (p *Player) Improvise(ctx context.Context) (*Improvisation, error) {
	logger := log.WithFields(log.Fields{
		"function": "Player.Improvise",
	})
	settings := p.Settings()
	params, err := settings.Params()
	if err != nil {
		return nil, err
	}
	logger.Info("Getting improvisation")
	result, err := p.AI.Generate(ctx, params)
	if err != nil {
		return nil, err
	}
	b, err := midi.EncodeBytes(result.Sequence, settings.Tempo)
	if err != nil {
		return nil, err
	}
	improvisation := &Improvisation{
		ID:       uuid.New().String(),
		FileName: OutputFile,
		Sequence: result.Sequence,
		MIDI:     b,
		Order:    result.Model.Order(),
		Tempo:    settings.Tempo,
	}
	logger.WithField("id", improvisation.ID).Infof("Improvised %d notes at order %d", len(result.Sequence), improvisation.Order)

	if err = p.Store.PutModel(store.BoostedModel, result.Model); err != nil {
		logger.Warn(err.Error())
	} else if err = p.Store.Save(); err != nil {
		logger.Warn(err.Error())
	}
	return improvisation, nil
}

// Model returns the trained base model, or with boosted set the model
// of the last improvisation. Models from earlier runs are read from
// the store.
func (p *Player) Model(boosted bool) (*markov.Model, error) {
	model, name := p.AI.Base(), store.BaseModel
	if boosted {
		model, name = p.AI.Model(), store.BoostedModel
	}
	if model != nil {
		return model, nil
	}
	return p.Store.Model(name)
}

// Close will save the store before exiting
func (p *Player) Close() (err error) {
	logger := log.WithFields(log.Fields{
		"function": "Player.Close",
	})
	logger.Debug("Saving store...")
	err = p.Store.Save()
	if err != nil {
		logger.Error(err.Error())
	}
	return
}
