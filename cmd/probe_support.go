package cmd

import (
	"context"
	"fmt"
	"time"

	appconfig "github.com/probeops/leakprobe/internal/config"
	"github.com/probeops/leakprobe/internal/observability"
	"github.com/probeops/leakprobe/internal/scenario"
	"github.com/probeops/leakprobe/internal/types"
)

// timePrecision keeps printed durations readable
const timePrecision = 10 * time.Millisecond

// probeInputs is the resolved set of inputs for a probe run, after merging
// scenario file values with command line flags. Flags win over the scenario,
// the scenario wins over configuration defaults.
type probeInputs struct {
	Models   []string
	Prompt   string
	Files    []string
	Gen      types.GenerationParams
	Scenario *scenario.Scenario
}

func resolveProbeInputs(scenarioPath string, models []string, prompt string, files []string, cfg *appconfig.Config) (*probeInputs, error) {
	inputs := &probeInputs{
		Models: models,
		Prompt: prompt,
		Files:  files,
		Gen:    cfg.GenerationParams(),
	}

	if scenarioPath != "" {
		s, err := scenario.Load(scenarioPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario: %w", err)
		}
		inputs.Scenario = s

		if len(inputs.Models) == 0 {
			inputs.Models = s.Models
		}
		if inputs.Prompt == "" {
			inputs.Prompt = s.Prompt
		}
		if len(inputs.Files) == 0 {
			inputs.Files = s.ConversationFiles
		}
		inputs.Gen = s.Generation.Apply(inputs.Gen)
	}

	if len(inputs.Models) == 0 {
		inputs.Models = []string{cfg.DefaultModel}
	}
	if inputs.Prompt == "" {
		return nil, &types.ProbeError{
			Type:    types.ErrorTypeValidation,
			Message: "a prompt is required, pass --prompt or a scenario file",
		}
	}

	return inputs, nil
}

// setupTelemetry initializes tracing and metrics, returning a shutdown hook.
// Misconfigured telemetry fails the command rather than running blind.
func setupTelemetry(ctx context.Context, cfg *appconfig.Config) (observability.ShutdownFunc, error) {
	shutdown, err := observability.Init(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry setup failed: %w", err)
	}
	return shutdown, nil
}
