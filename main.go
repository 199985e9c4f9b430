package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/felipetovarhenao/markov-feedback/config"
	"github.com/felipetovarhenao/markov-feedback/music"
	"github.com/felipetovarhenao/markov-feedback/player"
	"github.com/felipetovarhenao/markov-feedback/server"
	"github.com/felipetovarhenao/markov-feedback/store"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var version string

const sentryFlushTimeout = 2 * time.Second

func main() {
	cfg := config.Load()

	app := cli.NewApp()
	app.Version = version
	app.Compiled = time.Now()
	app.Name = "markov-feedback"
	app.Usage = "improvise MIDI with boosted Markov chains"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "debug mode",
		},
		cli.StringFlag{
			Name:  "store,s",
			Value: cfg.StorePath,
			Usage: "file to keep decoded files, settings and models in",
		},
	}
	app.Before = func(c *cli.Context) error {
		log.SetLevel(cfg.LogLevel)
		if c.GlobalBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	}

	settingFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "predictability,p",
			Value: cfg.Defaults.Predictability,
			Usage: "order of the model trained on the files",
		},
		cli.IntFlag{
			Name:  "steps",
			Value: cfg.Defaults.BoostingSteps,
			Usage: "number of times the order is raised",
		},
		cli.IntFlag{
			Name:  "factor",
			Value: cfg.Defaults.ReinforcementFactor,
			Usage: "reinforcement factor in percent",
		},
		cli.IntFlag{
			Name:  "threshold",
			Value: cfg.Defaults.ReinforcementThreshold,
			Usage: "probability in percent below which candidates are reinforced",
		},
		cli.IntFlag{
			Name:  "notes,n",
			Value: cfg.Defaults.OutputLength,
			Usage: "number of notes to generate",
		},
		cli.IntFlag{
			Name:  "bpm",
			Value: cfg.Defaults.Tempo,
			Usage: "tempo of the generated file",
		},
		cli.Int64Flag{
			Name:  "seed",
			Usage: "seed for the random source, 0 to use the clock",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "train",
			Usage:     "train the model on MIDI files or JSON sequences",
			ArgsUsage: "FILES...",
			Flags:     settingFlags,
			Action: func(c *cli.Context) error {
				p, err := open(c, cfg)
				if err != nil {
					return err
				}
				defer p.Close()
				if c.NArg() == 0 {
					return errors.New("no files to train on")
				}
				return teach(p, c.Args())
			},
		},
		{
			Name:      "generate",
			Usage:     "generate a MIDI file, training first when files are given",
			ArgsUsage: "[FILES...]",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "output,o",
					Value: player.OutputFile,
					Usage: "file to write the improvisation to",
				},
				cli.StringFlag{
					Name:  "json",
					Usage: "also write the improvised notes as JSON sequences",
				},
			}, settingFlags...),
			Action: func(c *cli.Context) error {
				p, err := open(c, cfg)
				if err != nil {
					return err
				}
				defer p.Close()
				if c.NArg() > 0 {
					if err = teach(p, c.Args()); err != nil {
						return err
					}
				}
				improvisation, err := p.Improvise(context.Background())
				if err != nil {
					return err
				}
				if err = ioutil.WriteFile(c.String("output"), improvisation.MIDI, 0644); err != nil {
					return err
				}
				fmt.Printf("wrote %d notes, %d beats (order %d) to %s\n",
					len(improvisation.Sequence), improvisation.Sequence.End()/music.Resolution, improvisation.Order, c.String("output"))
				if c.IsSet("json") {
					return music.Save(c.String("json"), []music.Sequence{improvisation.Sequence})
				}
				return nil
			},
		},
		{
			Name:  "serve",
			Usage: "serve the HTTP API",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "port",
					Value: cfg.Port,
					Usage: "port to listen on",
				},
			},
			Action: func(c *cli.Context) error {
				p, err := open(c, cfg)
				if err != nil {
					return err
				}
				defer p.Close()
				return serve(p, cfg, c.String("port"))
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// open loads the player from the store, applying the setting flags
// that were given on the command line.
func open(c *cli.Context, cfg *config.Config) (*player.Player, error) {
	st, err := store.Open(c.GlobalString("store"))
	if err != nil {
		return nil, err
	}
	p, err := player.New(st, cfg.Defaults)
	if err != nil {
		return nil, err
	}
	settings := p.Settings()
	changed := false
	for name, value := range map[string]*int{
		"predictability": &settings.Predictability,
		"steps":          &settings.BoostingSteps,
		"factor":         &settings.ReinforcementFactor,
		"threshold":      &settings.ReinforcementThreshold,
		"notes":          &settings.OutputLength,
		"bpm":            &settings.Tempo,
	} {
		if c.IsSet(name) {
			*value = c.Int(name)
			changed = true
		}
	}
	if c.IsSet("seed") {
		settings.Seed = c.Int64("seed")
		changed = true
	}
	if changed {
		if err = p.UpdateSettings(settings); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func teach(p *player.Player, files []string) error {
	var sources []player.Source
	for _, file := range files {
		// .json files hold sequences written by generate --json
		if strings.EqualFold(filepath.Ext(file), ".json") {
			sequences, err := music.Open(file)
			if err != nil {
				return err
			}
			sources = append(sources, player.Source{Name: filepath.Base(file), Sequences: sequences})
			continue
		}
		data, err := ioutil.ReadFile(file)
		if err != nil {
			return err
		}
		sources = append(sources, player.Source{Name: filepath.Base(file), Data: data})
	}
	lesson, err := p.Teach(context.Background(), sources)
	if err != nil {
		return err
	}
	fmt.Printf("learned %d events from %d tracks at order %d\n", lesson.Events, lesson.Sequences, lesson.Order)
	return nil
}

func serve(p *player.Player, cfg *config.Config, port string) error {
	logger := log.WithFields(log.Fields{
		"function": "main.serve",
	})
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Release:     "markov-feedback@" + version,
			Debug:       !cfg.IsProduction(),
		}); err != nil {
			logger.Warnf("Failed to initialize Sentry: %s", err.Error())
		} else {
			defer sentry.Flush(sentryFlushTimeout)
		}
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: server.SetupRouter(p, cfg),
	}

	// Exit on Ctl+C
	done := make(chan error, 1)
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- srv.Shutdown(ctx)
	}()

	logger.Infof("Starting server on port %s", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		sentry.CaptureException(err)
		return err
	}
	return <-done
}
