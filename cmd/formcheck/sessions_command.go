package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var exerciseFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the local session log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := store.ListOptions{Limit: limit}
			if v := strings.TrimSpace(exerciseFlag); v != "" {
				t, err := exercise.Parse(v)
				if err != nil {
					return err
				}
				opts.Exercise = t
			}

			return ctx.withStore(func(st *store.Store) error {
				records, err := st.Sessions().List(opts)
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No sessions logged yet")
					return nil
				}
				fmt.Fprintln(out, renderSessions(records))

				totals, err := st.Sessions().Totals()
				if err != nil {
					return fmt.Errorf("session totals: %w", err)
				}
				fmt.Fprintln(out, renderTotals(totals))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&exerciseFlag, "exercise", "e", "", "Only list sessions of this exercise")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to list (0 for all)")

	cmd.AddCommand(newSessionShowCommand(ctx))
	cmd.AddCommand(newSessionDeleteCommand(ctx))
	return cmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session and its corrections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				rec, err := findSession(st, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Session %s\n", rec.ID)
				fmt.Fprintln(out, renderSessions([]*session.Record{rec}))
				if len(rec.Corrections) == 0 {
					fmt.Fprintln(out, "No corrections given")
					return nil
				}
				rows := make([][]string, 0, len(rec.Corrections))
				for _, c := range rec.Corrections {
					rows = append(rows, []string{c.Text, fmt.Sprintf("%d", c.Count)})
				}
				fmt.Fprintln(out, renderTable([]string{"Correction", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newSessionDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session from the log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				rec, err := findSession(st, args[0])
				if err != nil {
					return err
				}
				if err := st.Sessions().Delete(rec.ID); err != nil {
					return fmt.Errorf("delete session: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", rec.ID)
				return nil
			})
		},
	}
}

// findSession resolves a full session ID or the short prefix shown in tables.
func findSession(st *store.Store, id string) (*session.Record, error) {
	id = strings.TrimSpace(id)
	rec, err := st.Sessions().GetByID(id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	records, err := st.Sessions().List(store.ListOptions{})
	if err != nil {
		return nil, err
	}
	var match string
	for _, r := range records {
		if !strings.HasPrefix(r.ID, id) {
			continue
		}
		if match != "" {
			return nil, fmt.Errorf("session prefix %q is ambiguous", id)
		}
		match = r.ID
	}
	if match == "" {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return st.Sessions().GetByID(match)
}

func renderTotals(totals []store.ExerciseTotal) string {
	headers := []string{"Exercise", "Sessions", "Reps", "Avg form"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, []string{
			string(t.Exercise),
			fmt.Sprintf("%d", t.Sessions),
			fmt.Sprintf("%d", t.Reps),
			formatScore(t.AvgFormScore),
		})
	}
	return renderTable(headers, rows, aligns)
}
