package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Amund211/esportsync/internal/app"
	"github.com/Amund211/esportsync/internal/config"
)

func planCmd() *cobra.Command {
	var scopeFile string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the tasks a sync would run",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := config.LoadSyncScope(scopeFile)
			if err != nil {
				return err
			}

			return printPlan(cmd.OutOrStdout(), scope)
		},
	}

	cmd.Flags().StringVar(&scopeFile, "scope", "", "Sync scope YAML file (default: the built-in scope)")

	return cmd
}

func printPlan(w io.Writer, scope config.SyncScope) error {
	tasks := app.BuildPlan(scope)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tGAME\tRESOURCE\tCACHE KEY\tTTL")
	for i, task := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			i+1,
			task.Game,
			task.Resource,
			task.Resource.CacheKey(&task.Game),
			task.Resource.Kind().TTL(),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d tasks, %d per page, pacing %s (burst %d)\n",
		len(tasks),
		scope.PerPage,
		pacingDescription(scope),
		scope.PacingBurst,
	)
	return err
}

func pacingDescription(scope config.SyncScope) string {
	if scope.PacingInterval <= 0 {
		return "disabled"
	}
	return fmt.Sprintf("1 request per %s", scope.PacingInterval)
}
