package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"affiliate-ledger/internal/services/ledger/rules"
)

// yamlDecimal accepts both `rate: 15` and `rate: "15.5"`.
type yamlDecimal struct {
	decimal.Decimal
	set bool
}

func (d *yamlDecimal) UnmarshalYAML(n *yaml.Node) error {
	v, err := decimal.NewFromString(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %q is not a decimal", n.Line, n.Value)
	}
	d.Decimal, d.set = v, true
	return nil
}

type rulesFile struct {
	Tiers []struct {
		MinUnits int64       `yaml:"min_units"`
		Rate     yamlDecimal `yaml:"rate"`
	} `yaml:"tiers"`
	ClearanceRate yamlDecimal `yaml:"clearance_rate"`
	OverrideRate  yamlDecimal `yaml:"override_rate"`
	Milestones    struct {
		CountThreshold  *int64      `yaml:"count_threshold"`
		CountBonus      yamlDecimal `yaml:"count_bonus"`
		VolumeThreshold yamlDecimal `yaml:"volume_threshold"`
		VolumeBonus     yamlDecimal `yaml:"volume_bonus"`
	} `yaml:"milestones"`
}

// LoadRules reads commission rules from a YAML file. Keys left out keep
// their rules.DefaultConfig value; an empty path returns the defaults.
func LoadRules(path string) (rules.Config, error) {
	cfg := rules.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) (rules.Config, error) {
	cfg := rules.DefaultConfig()

	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return cfg, fmt.Errorf("parse rules file: %w", err)
	}

	if len(f.Tiers) > 0 {
		tiers := make([]rules.Tier, 0, len(f.Tiers))
		for _, t := range f.Tiers {
			tiers = append(tiers, rules.Tier{MinUnits: t.MinUnits, Rate: t.Rate.Decimal})
		}
		cfg.Tiers = tiers
	}
	overlay(&cfg.ClearanceRate, f.ClearanceRate)
	overlay(&cfg.OverrideRate, f.OverrideRate)
	if f.Milestones.CountThreshold != nil {
		cfg.Milestones.CountThreshold = *f.Milestones.CountThreshold
	}
	overlay(&cfg.Milestones.CountBonus, f.Milestones.CountBonus)
	overlay(&cfg.Milestones.VolumeThreshold, f.Milestones.VolumeThreshold)
	overlay(&cfg.Milestones.VolumeBonus, f.Milestones.VolumeBonus)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid rules: %w", err)
	}
	return cfg, nil
}

func overlay(dst *decimal.Decimal, v yamlDecimal) {
	if v.set {
		*dst = v.Decimal
	}
}
