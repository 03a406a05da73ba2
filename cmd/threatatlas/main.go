// ThreatAtlas CLI - country cyber-risk scoring (TOPSIS).
// Merges baseline, NCSI, Talos spam and Spamhaus exploit data into a
// ranked, banded risk table.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/api"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/identity"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/pipeline"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/report"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/scoring"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/search"
)

var version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "threatatlas",
		Short:   "ThreatAtlas - country cyber-risk scorer",
		Long:    "Scores countries on cyber risk with TOPSIS over APT presence, GCI, NCSI, Spamhaus exploit rank and Talos spam magnitude.",
		Version: version,
	}

	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(aliasesCmd())
	rootCmd.AddCommand(serverCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scoreFlags carries the shared run-configuration flag set; score and
// query both register it.
type scoreFlags struct {
	file       string
	aliases    string
	configFile string

	addNCSI   string
	ncsiCache string

	wAPT  float64
	wGCI  float64
	wNCSI float64
	wMal  float64
	wSpam float64

	presenceMode string
	presenceCap  string
	quantiles    string
	ncsiMissing  string

	exclude     []string
	excludeISO2 []string
}

func (f *scoreFlags) register(cmd *cobra.Command) {
	d := pipeline.DefaultOptions()
	cmd.Flags().StringVar(&f.file, "file", d.BaseFile, "Base CSV input")
	cmd.Flags().StringVar(&f.aliases, "aliases", d.AliasFile, "Alias file for lookups")
	cmd.Flags().StringVar(&f.configFile, "config", "", "YAML profile with run options")
	cmd.Flags().StringVar(&f.addNCSI, "add-ncsi", "fetch", "Add NCSI: 'fetch' or path to a CSV")
	cmd.Flags().StringVar(&f.ncsiCache, "ncsi-cache", "", "Path to read/write the NCSI cache CSV")
	cmd.Flags().Float64Var(&f.wAPT, "w-apt", scoring.DefaultWeights.APT, "Weight for APT group count")
	cmd.Flags().Float64Var(&f.wGCI, "w-gci", scoring.DefaultWeights.GCI, "Weight for GCI sum")
	cmd.Flags().Float64Var(&f.wNCSI, "w-ncsi", scoring.DefaultWeights.NCSI, "Weight for NCSI score")
	cmd.Flags().Float64Var(&f.wMal, "w-mal", scoring.DefaultWeights.Exploit, "Weight for Spamhaus exploit rank (cost)")
	cmd.Flags().Float64Var(&f.wSpam, "w-spam", scoring.DefaultWeights.Spam, "Weight for Talos spam magnitude (cost)")
	cmd.Flags().StringVar(&f.presenceMode, "presence-mode", string(d.PresenceMode), "Presence mode (multiplicative, percentile)")
	cmd.Flags().StringVar(&f.presenceCap, "presence-cap", d.PresenceSpec, "Presence bucket spec")
	cmd.Flags().StringVar(&f.quantiles, "quantiles", "0.20,0.50,0.80,0.95", "Band cut quantiles (4 values)")
	cmd.Flags().StringVar(&f.ncsiMissing, "ncsi-missing", string(d.NCSIMissing), "Missing NCSI handling (drop, impute, scale)")
	cmd.Flags().StringArrayVar(&f.exclude, "exclude", nil, "Exclude by country name (repeatable)")
	cmd.Flags().StringArrayVar(&f.excludeISO2, "exclude-iso2", nil, "Exclude by ISO2 code (repeatable)")
}

// options builds run options: defaults, then the optional YAML profile,
// then any flag the user actually set.
func (f *scoreFlags) options(cmd *cobra.Command) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	if f.configFile != "" {
		var err error
		opts, err = pipeline.LoadProfile(f.configFile, opts)
		if err != nil {
			return opts, fmt.Errorf("loading config: %w", err)
		}
	}

	set := cmd.Flags().Changed
	if set("file") {
		opts.BaseFile = f.file
	}
	if set("aliases") {
		opts.AliasFile = f.aliases
	}
	if f.addNCSI != "fetch" && f.addNCSI != "" {
		opts.NCSIFile = f.addNCSI
	}
	if set("ncsi-cache") {
		opts.NCSICache = f.ncsiCache
	}
	if set("w-apt") {
		opts.Weights.APT = f.wAPT
	}
	if set("w-gci") {
		opts.Weights.GCI = f.wGCI
	}
	if set("w-ncsi") {
		opts.Weights.NCSI = f.wNCSI
	}
	if set("w-mal") {
		opts.Weights.Exploit = f.wMal
	}
	if set("w-spam") {
		opts.Weights.Spam = f.wSpam
	}
	if set("presence-mode") {
		opts.PresenceMode = scoring.PresenceMode(f.presenceMode)
	}
	if set("presence-cap") {
		opts.PresenceSpec = f.presenceCap
	}
	if set("ncsi-missing") {
		opts.NCSIMissing = scoring.MissingPolicy(f.ncsiMissing)
	}
	if set("quantiles") {
		q, err := parseQuantiles(f.quantiles)
		if err != nil {
			return opts, err
		}
		opts.Quantiles = q
	}
	opts.ExcludeNames = append(opts.ExcludeNames, f.exclude...)
	opts.ExcludeISO2 = append(opts.ExcludeISO2, f.excludeISO2...)
	return opts, nil
}

func scoreCmd() *cobra.Command {
	var (
		flags     scoreFlags
		top       int
		top5      bool
		top10     bool
		top20     bool
		export    string
		country   string
		assumeYes bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Run the scoring pipeline and print the ranked table",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(opts.NCSICache)
			result, err := runner.Run(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("scoring run failed: %w", err)
			}

			if country != "" {
				return printCountry(cmd, result, country, assumeYes, export)
			}

			topN := top
			switch {
			case top5:
				topN = 5
			case top10:
				topN = 10
			case top20:
				topN = 20
			}
			report.WriteTable(cmd.OutOrStdout(), result.Rows, topN)

			if export != "" {
				if err := report.ExportCSV(export, result.Rows); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nExported full results to %s\n", export)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&top, "top", 10, "Show top N by risk score")
	cmd.Flags().BoolVar(&top5, "top5", false, "Show top 5")
	cmd.Flags().BoolVar(&top10, "top10", false, "Show top 10")
	cmd.Flags().BoolVar(&top20, "top20", false, "Show top 20")
	cmd.Flags().StringVar(&export, "export", "", "Write the full scored CSV to this path")
	cmd.Flags().StringVar(&country, "country", "", "Query a single country (name or ISO2)")
	cmd.Flags().BoolVar(&assumeYes, "assume-yes", false, "Skip confirmation on approximate matches")

	return cmd
}

// printCountry resolves a single query against the scored table, asking
// for confirmation when the match is approximate.
func printCountry(cmd *cobra.Command, result *pipeline.Result, query string, assumeYes bool, export string) error {
	entries := make([]identity.Entry, len(result.Rows))
	for i, r := range result.Rows {
		entries[i] = identity.Entry{Name: r.Country, ISO2: r.ISO2}
	}
	resolver := identity.NewResolver(entries, result.Aliases)

	name, matches := resolver.Resolve(query)
	if len(matches) == 0 {
		return fmt.Errorf("no match for %q", query)
	}

	if !assumeYes && !strings.EqualFold(name, strings.TrimSpace(query)) {
		if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), name) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	sub := result.Rows[:0:0]
	for _, idx := range matches {
		sub = append(sub, result.Rows[idx])
	}
	report.WriteTable(cmd.OutOrStdout(), sub, 0)

	if export != "" {
		if err := report.ExportCSV(export, result.Rows); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nExported full results to %s\n", export)
	}
	return nil
}

// confirm prompts "Did you mean X?"; empty input and EOF count as yes.
func confirm(in io.Reader, out io.Writer, name string) bool {
	fmt.Fprintf(out, "Did you mean '%s'? [Y/n]: ", name)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true
	}
	return false
}

func queryCmd() *cobra.Command {
	var (
		flags     scoreFlags
		assumeYes bool
	)

	cmd := &cobra.Command{
		Use:   "query <terms>",
		Short: "Score and filter by comma-separated names or ISO2 codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(opts.NCSICache)
			result, err := runner.Run(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("scoring run failed: %w", err)
			}

			terms := search.ParseTerms(args[0])
			mask := search.BuildMask(result.Rows, terms, result.Aliases)
			rows := search.Filter(result.Rows, mask)
			if len(rows) > 0 {
				report.WriteTable(cmd.OutOrStdout(), rows, 0)
				return nil
			}

			suggestions := search.Suggest(result.Rows, terms, result.Aliases)
			if len(suggestions) == 0 {
				return fmt.Errorf("no match for %q", args[0])
			}
			if !assumeYes {
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), strings.Join(suggestions, ", ")) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			mask = search.BuildMask(result.Rows, suggestions, result.Aliases)
			report.WriteTable(cmd.OutOrStdout(), search.Filter(result.Rows, mask), 0)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&assumeYes, "assume-yes", false, "Skip confirmation on approximate matches")

	return cmd
}

func aliasesCmd() *cobra.Command {
	var aliasFile string

	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "List the configured country aliases",
		RunE: func(cmd *cobra.Command, args []string) error {
			aliases, err := identity.LoadAliases(aliasFile)
			if err != nil {
				return err
			}
			if len(aliases) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No aliases configured.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d aliases:\n\n", len(aliases))
			for _, alias := range aliases.SortedKeys() {
				code, _ := aliases.Lookup(alias)
				fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %s\n", alias, code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&aliasFile, "aliases", "alias.txt", "Alias file")
	return cmd
}

func serverCmd() *cobra.Command {
	var (
		flags scoreFlags
		port  int
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the ThreatAtlas API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("Starting ThreatAtlas API server on :%d...\n", port)
			return api.StartServer(port, opts)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&port, "port", 8080, "Server port")
	return cmd
}

func parseQuantiles(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid quantile %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}
