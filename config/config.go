package config

import (
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/felipetovarhenao/markov-feedback/ai"
	"github.com/felipetovarhenao/markov-feedback/markov"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrOutOfRange is returned for a setting outside of the range offered
// to users.
var ErrOutOfRange = errors.New("config: value out of range")

const (
	MinPredictability = 1
	MaxPredictability = 10
	MinBoostingSteps  = 0
	MaxBoostingSteps  = 15
	MinFactor         = 100
	MaxFactor         = 200
	MinThreshold      = 0
	MaxThreshold      = 100
	MinOutputLength   = 50
	MaxOutputLength   = 3000
	OutputLengthStep  = 50
	MinTempo          = 40
	MaxTempo          = 208
)

// Settings are the values a user picks, in the units of the sliders
// they are picked with.
type Settings struct {
	// Predictability is the order of the base model
	Predictability int `json:"initialOrder"`
	// BoostingSteps is how many times the order is raised
	BoostingSteps int `json:"markovOrder"`
	// ReinforcementFactor is a percentage; 100 means no reinforcement
	ReinforcementFactor int `json:"reinforcementFactor"`
	// ReinforcementThreshold is the percentage below which
	// reinforcement applies
	ReinforcementThreshold int `json:"maxReinforcement"`
	// OutputLength is the number of notes to generate
	OutputLength int `json:"numNotes"`
	// Tempo in beats per minute, only used when encoding
	Tempo int `json:"tempo"`
	// BoostLength is the number of notes generated at each boosting
	// step, 0 to use OutputLength
	BoostLength int `json:"boostLength,omitempty"`
	// Seed for the random source, 0 to seed from the clock
	Seed int64 `json:"seed,omitempty"`
}

// Defaults returns the settings a new user starts with.
func Defaults() Settings {
	return Settings{
		Predictability:         1,
		BoostingSteps:          5,
		ReinforcementFactor:    180,
		ReinforcementThreshold: 66,
		OutputLength:           500,
		Tempo:                  90,
	}
}

func inRange(name string, value, min, max int) error {
	if value < min || value > max {
		return errors.Wrapf(ErrOutOfRange, "%s is %d, must be within [%d, %d]", name, value, min, max)
	}
	return nil
}

// Validate fails on the first setting outside of its range.
func (s Settings) Validate() error {
	if s.Predictability < MinPredictability || s.Predictability > MaxPredictability {
		return errors.Wrapf(markov.ErrInvalidOrder, "predictability is %d, must be within [%d, %d]", s.Predictability, MinPredictability, MaxPredictability)
	}
	if err := inRange("boosting steps", s.BoostingSteps, MinBoostingSteps, MaxBoostingSteps); err != nil {
		return err
	}
	if err := inRange("reinforcement factor", s.ReinforcementFactor, MinFactor, MaxFactor); err != nil {
		return err
	}
	if err := inRange("reinforcement threshold", s.ReinforcementThreshold, MinThreshold, MaxThreshold); err != nil {
		return err
	}
	if err := inRange("output length", s.OutputLength, MinOutputLength, MaxOutputLength); err != nil {
		return err
	}
	if s.OutputLength%OutputLengthStep != 0 {
		return errors.Wrapf(ErrOutOfRange, "output length %d is not a multiple of %d", s.OutputLength, OutputLengthStep)
	}
	if s.BoostLength != 0 {
		if err := inRange("boost length", s.BoostLength, MinOutputLength, MaxOutputLength); err != nil {
			return err
		}
	}
	return inRange("tempo", s.Tempo, MinTempo, MaxTempo)
}

// Factor is the reinforcement exponent, log2 of the factor as a ratio.
func (s Settings) Factor() float64 {
	return math.Log2(float64(s.ReinforcementFactor) / 100)
}

// Threshold is the reinforcement threshold as a probability.
func (s Settings) Threshold() float64 {
	return float64(s.ReinforcementThreshold) / 100
}

// Params validates the settings and converts them to model parameters.
func (s Settings) Params() (ai.Params, error) {
	if err := s.Validate(); err != nil {
		return ai.Params{}, err
	}
	return ai.Params{
		Predictability: s.Predictability,
		BoostingSteps:  s.BoostingSteps,
		BoostLength:    s.BoostLength,
		OutputLength:   s.OutputLength,
		Factor:         s.Factor(),
		Threshold:      s.Threshold(),
		Seed:           s.Seed,
	}, nil
}

// Config holds the process configuration.
type Config struct {
	Environment string
	Port        string
	// StorePath is the jsonstore file for cached files, settings and
	// the last model
	StorePath string
	SentryDSN string
	LogLevel  log.Level
	// Defaults are the settings used until a user saves their own
	Defaults Settings
}

// Load reads the configuration from the environment, after loading a
// .env file if there is one.
func Load() *Config {
	logger := log.WithFields(log.Fields{
		"function": "config.Load",
	})
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	level, err := log.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL, using info: %s", err.Error())
		level = log.InfoLevel
	}
	defaults := Defaults()
	defaults.Predictability = getEnvInt("DEFAULT_PREDICTABILITY", defaults.Predictability)
	defaults.BoostingSteps = getEnvInt("DEFAULT_BOOSTING_STEPS", defaults.BoostingSteps)
	defaults.OutputLength = getEnvInt("DEFAULT_OUTPUT_LENGTH", defaults.OutputLength)
	defaults.Tempo = getEnvInt("DEFAULT_TEMPO", defaults.Tempo)
	if err := defaults.Validate(); err != nil {
		logger.Warnf("ignoring default settings from the environment: %s", err.Error())
		defaults = Defaults()
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		StorePath:   getEnv("IMPROVISER_STORE", "improviser.json"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
		LogLevel:    level,
		Defaults:    defaults,
	}
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
