package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/replay"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
)

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var exerciseFlag string
	var summaryOnly bool
	var save bool

	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Analyze a recorded landmark session",
		Long: "Replay a recording of /api/analyze client messages, one JSON object per line.\n" +
			"Use - to read the recording from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			msgs, err := readRecording(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			analysisCfg := cfg.AnalysisConfig()
			if v := strings.TrimSpace(exerciseFlag); v != "" {
				t, err := exercise.Parse(v)
				if err != nil {
					return err
				}
				analysisCfg.Exercise = t
			}

			report, err := replay.Run(cmd.Context(), analysisCfg, msgs, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !summaryOnly {
				fmt.Fprintln(out, renderFrames(report.Frames))
			}
			fmt.Fprintln(out, renderSessions(report.Sessions))
			fmt.Fprintf(out, "%d frames analyzed, %d failed\n", report.Stats.FramesAnalyzed, report.Stats.FramesFailed)

			if !save {
				return nil
			}
			return ctx.withStore(func(st *store.Store) error {
				for _, rec := range report.Sessions {
					if err := st.Sessions().Create(rec); err != nil {
						return fmt.Errorf("save session %s: %w", rec.ID, err)
					}
				}
				fmt.Fprintf(out, "Saved %d session(s) to %s\n", len(report.Sessions), st.Path())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&exerciseFlag, "exercise", "e", "", "Exercise to start with (overrides analysis.exercise)")
	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "Print only the session summary")
	cmd.Flags().BoolVar(&save, "save", false, "Add the replayed sessions to the session log")
	return cmd
}

func readRecording(path string, stdin io.Reader) ([]replay.Message, error) {
	if path == "-" {
		return replay.Read(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	msgs, err := replay.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return msgs, nil
}

func renderFrames(frames []replay.Frame) string {
	headers := []string{"#", "Time", "Phase", "Reps", "Form", "Grade", "Conf", "Correction"}
	aligns := []columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignLeft}

	var start int64
	if len(frames) > 0 {
		start = frames[0].Result.Timestamp
	}
	rows := make([][]string, 0, len(frames))
	for i, f := range frames {
		r := f.Result
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%dms", r.Timestamp-start),
			phaseLabel(r),
			fmt.Sprintf("%d", r.Reps),
			formatScore(r.FormScore),
			string(r.Grade),
			formatScore(r.Confidence),
			firstCorrection(r),
		})
	}
	return renderTable(headers, rows, aligns)
}

func phaseLabel(r analysis.Result) string {
	label := string(r.Phase)
	if r.RepCompleted {
		label += " +1"
	}
	if r.Degraded {
		label += " (degraded)"
	}
	return label
}

func firstCorrection(r analysis.Result) string {
	if len(r.Corrections) == 0 {
		return "-"
	}
	return r.Corrections[0]
}

func renderSessions(records []*session.Record) string {
	headers := []string{"Session", "Exercise", "Origin", "Started", "Duration", "Frames", "Degraded", "Reps", "Form", "Best"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			shortID(rec.ID),
			string(rec.Exercise),
			string(rec.Origin),
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatDuration(rec.Duration()),
			fmt.Sprintf("%d", rec.Frames),
			fmt.Sprintf("%d", rec.DegradedFrames),
			fmt.Sprintf("%d", rec.Reps),
			formatScore(rec.AvgFormScore),
			orDash(string(rec.BestGrade)),
		})
	}
	return renderTable(headers, rows, aligns)
}
