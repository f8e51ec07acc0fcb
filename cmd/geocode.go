package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/killallgit/route-planner-api/internal/services/cache"
	"github.com/killallgit/route-planner-api/internal/services/search"
	"github.com/spf13/cobra"
)

// geocodeCmd looks a place up from the terminal
var geocodeCmd = &cobra.Command{
	Use:   "geocode <text>",
	Short: "Look up a place",
	Long: `Resolve free text into candidate places with the configured provider.

Results are printed as [lon, lat] positions, the order route searches use.

Example:
  route-planner-api geocode Medellín
  route-planner-api geocode "Medellín, Antioquia" --limit 3 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGeocode,
}

func init() {
	rootCmd.AddCommand(geocodeCmd)

	geocodeCmd.Flags().Int("limit", 5, "maximum results to print")
	geocodeCmd.Flags().Bool("json", false, "print results as JSON")
}

func runGeocode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	query := strings.TrimSpace(strings.Join(args, " "))
	if utf8.RuneCountInString(query) < cfg.Search.MinQueryLength {
		return fmt.Errorf("%s (minimum %d characters)", search.TooShortMessage, cfg.Search.MinQueryLength)
	}

	mc := cache.NewMemoryCache(1)
	defer mc.Close()
	geocoder := newGeocoder(cfg, mc, log)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Geocoding.Timeout+5*time.Second)
	defer cancel()

	places, err := geocoder.Geocode(ctx, query)
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	results := make([]search.Result, 0, len(places))
	for _, p := range places {
		if limit > 0 && len(results) >= limit {
			break
		}
		results = append(results, search.ResultFromPlace(p))
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, search.NoResultsMessage)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPOSITION\tTITLE")
	for _, r := range results {
		pos := r.Coordinates.LonLat()
		fmt.Fprintf(tw, "%s\t[%.5f, %.5f]\t%s\n", r.ID, pos[0], pos[1], r.Title)
	}
	return tw.Flush()
}
