package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Amund211/esportsync/internal/app"
	"github.com/Amund211/esportsync/internal/bootstrap"
	"github.com/Amund211/esportsync/internal/config"
	"github.com/Amund211/esportsync/internal/domain"
	"github.com/Amund211/esportsync/internal/logging"
	"github.com/Amund211/esportsync/internal/reporting"
	"github.com/Amund211/esportsync/internal/telemetry"
)

func syncCmd() *cobra.Command {
	var (
		force     bool
		scopeFile string
		games     []string
		resources []string
		asJSON    bool
		trace     bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a single sync",
		Long:  "Refresh the durable store and cache for every task in the sync scope, using the environment's config",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseSyncOptions(force, games, resources)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "cli")

			if trace {
				shutdownTracing, err := telemetry.SetupStdoutTracing(os.Stderr, "esportsync-cli")
				if err != nil {
					return err
				}
				defer shutdownTracing(context.Background())
			}

			conf, err := config.ConfigFromEnv()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if scopeFile == "" {
				scopeFile = conf.SyncScopeFile()
			}
			scope, err := config.LoadSyncScope(scopeFile)
			if err != nil {
				return err
			}

			_, flush, err := reporting.NewSentryMiddlewareOrMock(conf)
			if err != nil {
				return fmt.Errorf("failed to initialize sentry: %w", err)
			}
			defer flush()

			service, err := bootstrap.New(ctx, conf, scope, logger)
			if err != nil {
				return err
			}
			defer service.Close()

			ctx = logging.AddToContext(ctx, logger)
			ctx = reporting.WithHub(ctx, map[string]string{"component": "cli"})

			results, err := service.RunSync(ctx, opts)
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			return printResults(cmd.OutOrStdout(), results, asJSON)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Sync tasks whose cache entries are still fresh")
	cmd.Flags().StringVar(&scopeFile, "scope", "", "Sync scope YAML file (default $SYNC_SCOPE_FILE or the built-in scope)")
	cmd.Flags().StringSliceVar(&games, "games", nil, "Only sync these games (lol, cs2, dota2)")
	cmd.Flags().StringSliceVar(&resources, "resources", nil, "Only sync these resources (teams, matches, live_matches, past_matches, tournaments, players)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the results as JSON")
	cmd.Flags().BoolVar(&trace, "trace", false, "Write trace spans to stderr")

	return cmd
}

func parseSyncOptions(force bool, rawGames []string, rawResources []string) (app.SyncOptions, error) {
	opts := app.SyncOptions{Force: force}

	for _, raw := range rawGames {
		game, err := domain.ParseGameType(raw)
		if err != nil {
			return app.SyncOptions{}, err
		}
		opts.Games = append(opts.Games, game)
	}

	for _, raw := range rawResources {
		resource, err := domain.ParseSyncResource(raw)
		if err != nil {
			return app.SyncOptions{}, err
		}
		opts.Resources = append(opts.Resources, resource)
	}

	return opts, nil
}

func printResults(w io.Writer, results []domain.SyncTaskResult, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GAME\tRESOURCE\tOUTCOME\tCOUNT\tDETAIL")
	for _, result := range results {
		outcome := "failed"
		detail := result.Error
		switch {
		case result.Skipped:
			outcome = "skipped"
			detail = string(result.Reason)
		case result.Success:
			outcome = "ok"
		}

		count := "-"
		if result.Count != nil {
			count = strconv.Itoa(*result.Count)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", result.Game, result.ResourceType, outcome, count, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	succeeded, failed, skipped := app.CountResults(results)
	_, err := fmt.Fprintf(w, "\nSync completed: %d succeeded, %d failed, %d skipped\n", succeeded, failed, skipped)
	return err
}
