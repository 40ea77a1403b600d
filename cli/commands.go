package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voicevision/voicevision/orchestrator"
	"github.com/voicevision/voicevision/progress"
	"github.com/voicevision/voicevision/tutor"
)

func (a *app) transcribeCommand() *cobra.Command {
	var (
		opts    orchestrator.Options
		format  string
		persist bool
	)
	cmd := &cobra.Command{
		Use:   "transcribe <file|url>",
		Short: "Transcribe a local audio file or an online audio link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := orchestrator.ExportName(format); err != nil {
				return err
			}
			p := a.newPipeline(a.newClients(nil), nil)

			src := args[0]
			var (
				t   *orchestrator.Transcription
				err error
			)
			if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
				t, err = p.TranscribeURL(cmd.Context(), src, opts)
			} else {
				t, err = p.Transcribe(cmd.Context(), src, opts)
			}
			if err != nil {
				return err
			}
			for _, w := range t.Warnings {
				a.log.Warn(w)
			}
			if persist {
				sid, dir, err := p.Persist(t, format)
				if err != nil {
					return err
				}
				a.log.WithField("session", sid).Infof("saved to %s", dir)
			}
			return orchestrator.WriteTranscript(a.out, t, format)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.Speakers, "speakers", false, "estimate the number of speakers")
	f.BoolVar(&opts.Gender, "gender", false, "estimate the dominant speaker gender")
	f.BoolVar(&opts.Keywords, "keywords", false, "extract keywords")
	f.BoolVar(&opts.Visualize, "visualize", false, "compute waveform and spectrogram data")
	f.StringVar(&opts.Language, "language", "", "recognition language hint (ISO code)")
	f.StringVarP(&format, "format", "f", orchestrator.FormatText, "output format: txt, timestamped, srt, vtt or json")
	f.BoolVar(&persist, "persist", false, "also write the result under paths.outputs")
	return cmd
}

func (a *app) translateCommand() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate text between translator languages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.newPipeline(a.newClients(nil), nil)
			e, err := p.TranslateText(cmd.Context(), strings.Join(args, " "), from, to)
			if err != nil {
				if errors.Is(err, orchestrator.ErrUnknownLanguage) {
					return fmt.Errorf("%w (known: %s)", err, languageNames())
				}
				return err
			}
			_, err = fmt.Fprintln(a.out, e.TranslatedText)
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "English", "source language name")
	cmd.Flags().StringVar(&to, "to", "Hindi", "target language name")
	return cmd
}

func languageNames() string {
	var names []string
	for _, l := range orchestrator.Languages() {
		names = append(names, l.Name)
	}
	return strings.Join(names, ", ")
}

func (a *app) progressCommand() *cobra.Command {
	var user, lang, level string
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Print a learner's progress report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := a.newTutor(a.newClients(nil))
			rep, err := t.Report(user, lang, level)
			if err != nil {
				return err
			}
			if rep == nil {
				fmt.Fprintf(a.out, "No progress recorded for %s in %s yet.\n", user, lang)
				for _, tip := range progress.GettingStarted {
					fmt.Fprintf(a.out, "  - %s\n", tip)
				}
				return nil
			}
			printReport(a, rep)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&user, "user", "u", "", "username")
	f.StringVarP(&lang, "lang", "l", "", "learning language code, e.g. es")
	f.StringVar(&level, "level", tutor.LevelBeginner, "learner level for the milestone")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

func printReport(a *app, r *progress.Report) {
	w := a.out
	fmt.Fprintf(w, "Words learned:       %d\n", r.Stats.WordsLearned)
	fmt.Fprintf(w, "Exercises completed: %d\n", r.Stats.ExercisesCompleted)
	fmt.Fprintf(w, "Practice sessions:   %d\n", r.Stats.PracticeSessions)
	fmt.Fprintf(w, "Last active:         %s\n", r.Stats.LastActive)
	if r.AverageQuiz != nil {
		fmt.Fprintf(w, "Average quiz score:  %.1f%% over %d quizzes\n", *r.AverageQuiz, len(r.QuizScores))
	}

	acts := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		acts = append(acts, k)
	}
	sort.Strings(acts)
	for _, k := range acts {
		fmt.Fprintf(w, "  %-10s %d\n", k, r.Counts[k])
	}
	if len(r.Recent) > 0 {
		fmt.Fprintln(w, "Recent:")
		for _, ra := range r.Recent {
			fmt.Fprintf(w, "  %s %s  %s\n", ra.Icon, ra.Label, ra.Timestamp)
		}
	}
	if r.Suggestion != "" {
		fmt.Fprintf(w, "Suggestion: %s\n", r.Suggestion)
	}
	if r.Milestone != nil {
		fmt.Fprintf(w, "Milestone: %s\n", r.Milestone.Message)
	}
}

func (a *app) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.conf.Dump(a.out)
		},
	}
}
