// Package cli wires the configuration, services and web server behind the
// voicevision command.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voicevision/voicevision/clients"
	cfg "github.com/voicevision/voicevision/config"
	"github.com/voicevision/voicevision/logging"
	"github.com/voicevision/voicevision/metrics"
	"github.com/voicevision/voicevision/orchestrator"
	"github.com/voicevision/voicevision/progress"
	"github.com/voicevision/voicevision/tutor"
)

const downloadTimeout = 5 * time.Minute

type app struct {
	cfgPath  string
	logLevel string

	conf *cfg.Root
	log  *logrus.Logger
	out  io.Writer
}

// NewRootCommand builds the command tree. Output goes to cmd.OutOrStdout so
// tests can capture it.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "voicevision",
		Short:         "Voice Vision: speech, translation and language learning tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file (default config/$CONFIG_ENV/config.yaml or ./config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override app.log_level")

	root.AddCommand(
		a.serveCommand(),
		a.transcribeCommand(),
		a.translateCommand(),
		a.progressCommand(),
		a.configCommand(),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	conf, err := cfg.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		conf.App.LogLvl = a.logLevel
	}
	log, err := logging.NewWithWriter(cmd.ErrOrStderr(), conf.App.LogLvl, conf.App.LogFormat)
	if err != nil {
		return err
	}
	a.conf, a.log, a.out = conf, log, cmd.OutOrStdout()
	return nil
}

// newClients builds the shared upstream client with per-service timeouts and
// rate limits. obs may be nil.
func (a *app) newClients(obs clients.Observer) *clients.HTTP {
	s := a.conf.Services
	opts := []clients.Option{
		clients.WithLogger(a.log),
		clients.WithService(clients.ServiceDownload, downloadTimeout, 0),
	}
	if obs != nil {
		opts = append(opts, clients.WithObserver(obs))
	}
	for name, svc := range map[string]cfg.Service{
		clients.ServiceASR:        s.ASR,
		clients.ServiceTranslate:  s.Translate,
		clients.ServiceTTS:        s.TTS,
		clients.ServiceYouTube:    s.YouTube,
		clients.ServiceTranscript: s.Transcript,
		clients.ServiceQA:         s.QA,
		clients.ServiceThesaurus:  s.Thesaurus,
		clients.ServiceWikipedia:  s.Wikipedia,
	} {
		opts = append(opts, clients.WithService(name, cfg.DurSeconds(svc.Timeout), svc.RatePerSec))
	}
	return clients.NewHTTP(opts...)
}

func (a *app) newPipeline(h *clients.HTTP, m *metrics.Collector) *orchestrator.Pipeline {
	opts := []orchestrator.Option{orchestrator.WithLogger(a.log)}
	if m != nil {
		opts = append(opts, orchestrator.WithFeatureObserver(m))
	}
	return orchestrator.NewPipeline(a.conf, h, opts...)
}

func (a *app) newTutor(h *clients.HTTP) *tutor.Tutor {
	svc := tutor.NewServices(h, a.conf)
	store := progress.NewStore(a.conf.Paths.Progress, progress.WithLogger(a.log))
	return tutor.New(svc, svc, store, tutor.WithLogger(a.log))
}
