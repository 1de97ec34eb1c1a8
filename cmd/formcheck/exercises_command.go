package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/formcheck/internal/exercise"
)

func newExercisesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "exercises",
		Short:       "List the exercise catalog",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			headers := []string{"Type", "Name", "Joint groups", "Rep range"}
			var rows [][]string
			for _, t := range exercise.All() {
				def, err := exercise.Lookup(t)
				if err != nil {
					return err
				}
				groups := make([]string, 0, len(def.Groups))
				for _, g := range def.Groups {
					groups = append(groups, g.Name)
				}
				rows = append(rows, []string{
					string(def.Type),
					def.Name,
					strings.Join(groups, ", "),
					fmt.Sprintf("%.0f-%.0f°", def.Rep.Low, def.Rep.High),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, nil))
			return nil
		},
	}
}
