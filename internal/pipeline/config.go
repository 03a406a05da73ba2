package pipeline

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/scoring"
)

// Profile is an optional YAML scoring profile. Every field is optional;
// set fields overlay the defaults and command-line flags fill in the rest.
type Profile struct {
	BaseFile  string `yaml:"base_file"`
	AliasFile string `yaml:"alias_file"`
	NCSIFile  string `yaml:"ncsi_file"`
	NCSICache string `yaml:"ncsi_cache"`

	Weights struct {
		APT     *float64 `yaml:"apt"`
		GCI     *float64 `yaml:"gci"`
		NCSI    *float64 `yaml:"ncsi"`
		Exploit *float64 `yaml:"exploit"`
		Spam    *float64 `yaml:"spam"`
	} `yaml:"weights"`

	NCSIMissing string `yaml:"ncsi_missing"`

	Presence struct {
		Mode    string `yaml:"mode"`
		Buckets string `yaml:"buckets"`
	} `yaml:"presence"`

	Quantiles []float64 `yaml:"quantiles"`

	Exclude     []string `yaml:"exclude"`
	ExcludeISO2 []string `yaml:"exclude_iso2"`
}

// LoadProfile reads a profile file and overlays it on opts.
func LoadProfile(path string, opts Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return opts, err
	}

	if p.BaseFile != "" {
		opts.BaseFile = p.BaseFile
	}
	if p.AliasFile != "" {
		opts.AliasFile = p.AliasFile
	}
	if p.NCSIFile != "" {
		opts.NCSIFile = p.NCSIFile
	}
	if p.NCSICache != "" {
		opts.NCSICache = p.NCSICache
	}
	if p.Weights.APT != nil {
		opts.Weights.APT = *p.Weights.APT
	}
	if p.Weights.GCI != nil {
		opts.Weights.GCI = *p.Weights.GCI
	}
	if p.Weights.NCSI != nil {
		opts.Weights.NCSI = *p.Weights.NCSI
	}
	if p.Weights.Exploit != nil {
		opts.Weights.Exploit = *p.Weights.Exploit
	}
	if p.Weights.Spam != nil {
		opts.Weights.Spam = *p.Weights.Spam
	}
	if p.NCSIMissing != "" {
		opts.NCSIMissing = scoring.MissingPolicy(p.NCSIMissing)
	}
	if p.Presence.Mode != "" {
		opts.PresenceMode = scoring.PresenceMode(p.Presence.Mode)
	}
	if p.Presence.Buckets != "" {
		opts.PresenceSpec = p.Presence.Buckets
	}
	if len(p.Quantiles) > 0 {
		opts.Quantiles = p.Quantiles
	}
	opts.ExcludeNames = append(opts.ExcludeNames, p.Exclude...)
	opts.ExcludeISO2 = append(opts.ExcludeISO2, p.ExcludeISO2...)
	return opts, nil
}
