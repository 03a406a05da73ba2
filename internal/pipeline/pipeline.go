// Package pipeline wires the stages of a scoring run: load, merge, score,
// adjust, band, filter. Each stage is a pure transform over the table;
// secondary-source failures degrade to missing columns instead of aborting.
package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/core"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/identity"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/merge"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/scoring"
	"github.com/xBurningGiraffe/ThreatAtlas/internal/sources"
)

// NCSISource, SpamSource and ExploitSource are the collaborator interfaces
// for the three secondary datasets. Each may fail independently.
type NCSISource interface {
	Fetch(ctx context.Context) ([]sources.NCSIRow, error)
}

type SpamSource interface {
	Fetch(ctx context.Context) ([]sources.SpamRow, error)
}

type ExploitSource interface {
	Fetch(ctx context.Context) ([]sources.ExploitRow, error)
}

// Options is the full configuration surface of a run.
type Options struct {
	BaseFile  string
	AliasFile string

	// NCSIFile, when set, loads the index from a local CSV instead of
	// fetching. NCSICache is the optional read/write fetch cache.
	NCSIFile  string
	NCSICache string

	Weights      scoring.Weights
	NCSIMissing  scoring.MissingPolicy
	PresenceMode scoring.PresenceMode
	PresenceSpec string
	Quantiles    []float64

	ExcludeNames []string
	ExcludeISO2  []string
}

// DefaultOptions mirror the documented defaults of the configuration
// surface.
func DefaultOptions() Options {
	return Options{
		BaseFile:     "country_risk.csv",
		AliasFile:    "alias.txt",
		Weights:      scoring.DefaultWeights,
		NCSIMissing:  scoring.PolicyDrop,
		PresenceMode: scoring.ModeMultiplicative,
		PresenceSpec: "0:0.4,1-4:0.7,5-:1.0",
		Quantiles:    scoring.DefaultQuantiles,
	}
}

// Result is a completed run: the scored, banded, sorted table plus the
// soft warnings accumulated along the way.
type Result struct {
	RunID     string            `json:"run_id"`
	Rows      core.Table        `json:"rows"`
	Aliases   identity.AliasMap `json:"-"`
	Warnings  []string          `json:"warnings,omitempty"`
	Started   time.Time         `json:"started"`
	Completed time.Time         `json:"completed"`
}

// Runner owns the secondary-source collaborators.
type Runner struct {
	NCSI     NCSISource
	Spam     SpamSource
	Exploits ExploitSource
}

// NewRunner builds a runner with the live fetchers.
func NewRunner(ncsiCache string) *Runner {
	return &Runner{
		NCSI:     sources.NewNCSIFetcher(ncsiCache),
		Spam:     sources.NewSpamFetcher(),
		Exploits: sources.NewExploitFetcher(),
	}
}

// Run executes the pipeline once. Structural problems (missing required
// columns, zero rows after exclusions) are errors; everything else
// degrades with a warning.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Started: time.Now().UTC()}

	table, err := core.LoadBaseCSV(opts.BaseFile)
	if err != nil {
		return nil, err
	}
	aliases, err := identity.LoadAliases(opts.AliasFile)
	if err != nil {
		return nil, err
	}
	res.Aliases = aliases

	// NCSI is local-first: an already-populated column skips the fetch.
	if !table.HasNCSI() {
		rows, err := r.ncsiRows(ctx, opts)
		if err != nil {
			res.warn("ncsi fetch failed", err)
		} else {
			table = merge.NCSI(table, rows)
		}
	}

	if rows, err := r.Spam.Fetch(ctx); err != nil {
		res.warn("spam top-senders fetch failed", err)
	} else {
		table = merge.Spam(table, rows, aliases)
	}

	if rows, err := r.Exploits.Fetch(ctx); err != nil {
		res.warn("exploits fetch failed", err)
	} else {
		table = merge.Exploits(table, rows, aliases)
	}

	table = scoring.Score(table, scoring.Options{
		Weights:     opts.Weights,
		NCSIMissing: opts.NCSIMissing,
		SpamMissing: scoring.PolicyDrop,
	})

	table, err = scoring.ApplyPresence(table, opts.PresenceMode, opts.PresenceSpec)
	if err != nil {
		return nil, err
	}
	table, err = scoring.Band(table, opts.Quantiles)
	if err != nil {
		return nil, err
	}

	table = applyExclusions(table, opts.ExcludeNames, opts.ExcludeISO2)
	if len(table) == 0 {
		return nil, core.ErrEmptyResult
	}

	sortByRiskDesc(table)
	res.Rows = table
	res.Completed = time.Now().UTC()
	return res, nil
}

func (r *Runner) ncsiRows(ctx context.Context, opts Options) ([]sources.NCSIRow, error) {
	if opts.NCSIFile != "" {
		return sources.LoadNCSICSV(opts.NCSIFile)
	}
	return r.NCSI.Fetch(ctx)
}

func (res *Result) warn(msg string, err error) {
	slog.Warn(msg, "error", err)
	res.Warnings = append(res.Warnings, msg+": "+err.Error())
}

func applyExclusions(t core.Table, names, codes []string) core.Table {
	if len(names) == 0 && len(codes) == 0 {
		return t
	}
	nameSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		nameSet[n] = struct{}{}
	}
	codeSet := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		codeSet[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}

	var out core.Table
	for _, row := range t {
		if _, drop := nameSet[row.Country]; drop {
			continue
		}
		if _, drop := codeSet[row.ISO2]; drop {
			continue
		}
		out = append(out, row)
	}
	return out
}

// sortByRiskDesc orders rows by descending risk score; a stable sort keeps
// table order for ties so output is deterministic.
func sortByRiskDesc(t core.Table) {
	sort.SliceStable(t, func(i, j int) bool {
		return deref(t[i].RiskScore) > deref(t[j].RiskScore)
	})
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
