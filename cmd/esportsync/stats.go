package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Amund211/esportsync/internal/adapters/cache"
	"github.com/Amund211/esportsync/internal/constants"
	"github.com/Amund211/esportsync/internal/monitor"
)

type statsResponse struct {
	Stats     monitor.Stats               `json:"stats"`
	RateLimit monitor.RateLimitInfo       `json:"rateLimit"`
	Caches    map[string]cache.CacheStats `json:"caches"`
}

func statsCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a running server's request budget and cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			stats, err := fetchStats(ctx, http.DefaultClient, server)
			if err != nil {
				return err
			}

			return printStats(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Base URL of the esportsync server")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	return cmd
}

func fetchStats(ctx context.Context, client *http.Client, server string) (statsResponse, error) {
	endpoint, err := url.JoinPath(server, "/admin/stats")
	if err != nil {
		return statsResponse{}, fmt.Errorf("invalid server url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return statsResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", constants.USER_AGENT)

	resp, err := client.Do(req)
	if err != nil {
		return statsResponse{}, fmt.Errorf("failed to get stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statsResponse{}, fmt.Errorf("failed to get stats: %s", resp.Status)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return statsResponse{}, fmt.Errorf("failed to decode stats: %w", err)
	}

	return stats, nil
}

func printStats(w io.Writer, stats statsResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Status:\t%s\n", stats.Stats.Status)
	fmt.Fprintf(tw, "Budget:\t%d/%d used, %d remaining, resets %s\n",
		stats.RateLimit.Used,
		stats.RateLimit.Limit,
		stats.RateLimit.Remaining,
		stats.RateLimit.ResetTime.Format(time.RFC3339),
	)
	fmt.Fprintf(tw, "Requests:\t%d total, %d this hour, %d errors (%.1f%%)\n",
		stats.Stats.TotalRequests,
		stats.Stats.RequestsThisHour,
		stats.Stats.Errors,
		stats.Stats.ErrorRate*100,
	)
	fmt.Fprintf(tw, "Avg response:\t%.0fms\n", stats.Stats.AverageResponseTime)
	fmt.Fprintf(tw, "Cache:\t%d hits, %d misses (%.1f%%)\n",
		stats.Stats.CacheHits,
		stats.Stats.CacheMisses,
		stats.Stats.CacheHitRate*100,
	)
	fmt.Fprintf(tw, "Recommendation:\t%s\n", stats.Stats.Recommendation)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(stats.Caches) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CACHE\tSIZE")
	names := make([]string, 0, len(stats.Caches))
	for name := range stats.Caches {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, stats.Caches[name].Size)
	}
	return tw.Flush()
}
