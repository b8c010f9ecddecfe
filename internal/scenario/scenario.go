// Package scenario loads probe definitions from YAML files.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/probeops/leakprobe/internal/types"
)

// Strategy labels the query strategy a scenario exercises
type Strategy string

const (
	StrategyDirect              Strategy = "direct"
	StrategyIndirect            Strategy = "indirect"
	StrategyComposite           Strategy = "composite"
	StrategyBehavioralDeduction Strategy = "behavioral-deduction"
	StrategySyntheticPersona    Strategy = "synthetic-persona"
)

var knownStrategies = map[Strategy]bool{
	StrategyDirect:              true,
	StrategyIndirect:            true,
	StrategyComposite:           true,
	StrategyBehavioralDeduction: true,
	StrategySyntheticPersona:    true,
}

// GenerationOverride carries per-scenario sampling overrides. Pointer fields
// distinguish an omitted value from an explicit zero, so a scenario that only
// sets temperature leaves the configured token budget alone.
type GenerationOverride struct {
	MaxTokens   *int     `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
}

// Apply merges the set fields onto base and returns the result
func (g *GenerationOverride) Apply(base types.GenerationParams) types.GenerationParams {
	if g == nil {
		return base
	}
	if g.MaxTokens != nil {
		base.MaxTokens = *g.MaxTokens
	}
	if g.Temperature != nil {
		base.Temperature = *g.Temperature
	}
	return base
}

// Scenario is a reusable probe definition
type Scenario struct {
	Name              string              `yaml:"name"`
	Description       string              `yaml:"description"`
	Strategy          Strategy            `yaml:"strategy"`
	Models            []string            `yaml:"models"`
	Prompt            string              `yaml:"prompt"`
	ConversationFiles []string            `yaml:"conversation_files"`
	Generation        *GenerationOverride `yaml:"generation"`
}

// Load reads and validates a scenario file. Relative conversation file paths
// resolve against the scenario file's directory, so scenarios stay portable.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ProbeError{
			Type:     types.ErrorTypeFileAccess,
			Message:  fmt.Sprintf("could not read scenario file: %v", err),
			FilePath: path,
			Cause:    err,
		}
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &types.ProbeError{
			Type:     types.ErrorTypeValidation,
			Message:  fmt.Sprintf("invalid scenario YAML: %v", err),
			FilePath: path,
			Cause:    err,
		}
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	for i, f := range s.ConversationFiles {
		if !filepath.IsAbs(f) {
			s.ConversationFiles[i] = filepath.Join(baseDir, f)
		}
	}

	return &s, nil
}

func (s *Scenario) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &types.ProbeError{
			Type:    types.ErrorTypeValidation,
			Message: "scenario name is required",
		}
	}
	if strings.TrimSpace(s.Prompt) == "" {
		return &types.ProbeError{
			Type:    types.ErrorTypeValidation,
			Message: fmt.Sprintf("scenario %q has no prompt", s.Name),
		}
	}
	if len(s.Models) == 0 {
		return &types.ProbeError{
			Type:    types.ErrorTypeValidation,
			Message: fmt.Sprintf("scenario %q names no models", s.Name),
		}
	}
	if s.Strategy != "" && !knownStrategies[s.Strategy] {
		return &types.ProbeError{
			Type:    types.ErrorTypeValidation,
			Message: fmt.Sprintf("scenario %q has unknown strategy %q", s.Name, s.Strategy),
		}
	}
	return nil
}
