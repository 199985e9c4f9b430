// Package store persists decoded training files, user settings and the
// last trained model in a single jsonstore file.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/felipetovarhenao/markov-feedback/config"
	"github.com/felipetovarhenao/markov-feedback/markov"
	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/pkg/errors"
	"github.com/schollz/jsonstore"
	log "github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a key has never been stored.
var ErrNotFound = errors.New("store: not found")

const (
	filePrefix  = "file:"
	settingsKey = "settings"
)

// Keys of the stored models.
const (
	// BaseModel is the model trained on the uploaded files
	BaseModel = "model"
	// BoostedModel is the model of the last generation
	BoostedModel = "boosted"
)

var fileKeys = regexp.MustCompile("^" + filePrefix)

// Store wraps a jsonstore and the file it is saved to. A Store with
// no file name lives in memory only.
type Store struct {
	filename string
	data     *jsonstore.JSONStore
}

// Open loads the store from filename, starting empty when the file
// does not exist yet.
func Open(filename string) (*Store, error) {
	logger := log.WithFields(log.Fields{
		"function": "store.Open",
	})
	s := &Store{filename: filename, data: new(jsonstore.JSONStore)}
	if filename == "" {
		return s, nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		logger.Infof("starting new store at %s", filename)
		return s, nil
	}
	data, err := jsonstore.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening store %s", filename)
	}
	s.data = data
	logger.Debugf("loaded %d keys from %s", len(data.Keys()), filename)
	return s, nil
}

// Memory returns a store that is never written to disk.
func Memory() *Store {
	s, _ := Open("")
	return s
}

// Save writes the store to its file.
func (s *Store) Save() error {
	if s.filename == "" {
		return nil
	}
	return errors.Wrapf(jsonstore.Save(s.data, s.filename), "saving store %s", s.filename)
}

// Digest identifies the content of a file.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fileKey(name string, data []byte) string {
	return filePrefix + name + ":" + Digest(data)
}

// Sequences returns the sequences decoded earlier from a file with the
// same name and content.
func (s *Store) Sequences(name string, data []byte) ([]music.Sequence, bool) {
	var sequences []music.Sequence
	if err := s.data.Get(fileKey(name, data), &sequences); err != nil {
		return nil, false
	}
	return sequences, true
}

// PutSequences remembers the sequences decoded from a file.
func (s *Store) PutSequences(name string, data []byte, sequences []music.Sequence) error {
	return errors.Wrapf(s.data.Set(fileKey(name, data), sequences), "storing %s", name)
}

// Files lists the names of the cached files.
func (s *Store) Files() []string {
	var names []string
	for key := range s.data.GetAll(fileKeys) {
		key = strings.TrimPrefix(key, filePrefix)
		if i := strings.LastIndex(key, ":"); i >= 0 {
			key = key[:i]
		}
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// Settings returns the stored settings, or defaults when none are
// stored or the stored ones no longer validate.
func (s *Store) Settings(defaults config.Settings) config.Settings {
	var settings config.Settings
	if err := s.data.Get(settingsKey, &settings); err != nil {
		return defaults
	}
	if err := settings.Validate(); err != nil {
		log.WithFields(log.Fields{
			"function": "Store.Settings",
		}).Warnf("ignoring stored settings: %s", err.Error())
		return defaults
	}
	return settings
}

// PutSettings stores validated settings.
func (s *Store) PutSettings(settings config.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return errors.Wrap(s.data.Set(settingsKey, settings), "storing settings")
}

// Model returns the model stored under name.
func (s *Store) Model(name string) (*markov.Model, error) {
	model := new(markov.Model)
	err := s.data.Get(name, model)
	if _, ok := err.(jsonstore.NoSuchKeyError); ok {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", name)
	}
	return model, nil
}

// PutModel stores a trained model under name, replacing the previous
// one.
func (s *Store) PutModel(name string, model *markov.Model) error {
	return errors.Wrapf(s.data.Set(name, model), "storing %s", name)
}
