// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/config"
	"github.com/dmuso/direclaw/internal/provider"
	"github.com/dmuso/direclaw/internal/state"
	"github.com/dmuso/direclaw/pkg/workflow"
)

// NewRunCommand builds `direclaw workflow run <id> [--input k=v]...`.
func NewRunCommand() *cobra.Command {
	var (
		orchestratorID string
		inputPairs     []string
	)

	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Start a workflow run directly, outside the queue/selector path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := parseInputPairs(inputPairs)
			if err != nil {
				return shared.NewExitError(shared.ExitInvalidInput, "invalid --input", err)
			}
			return runRun(cmd.Context(), args[0], orchestratorID, inputs)
		},
	}
	cmd.Flags().StringVar(&orchestratorID, "orchestrator", "", "Orchestrator id to run under (default: the sole configured orchestrator)")
	cmd.Flags().StringArrayVar(&inputPairs, "input", nil, "Workflow input as key=value; repeatable")
	return cmd
}

func parseInputPairs(pairs []string) (map[string]any, error) {
	inputs := map[string]any{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		inputs[k] = v
	}
	return inputs, nil
}

func runRun(ctx context.Context, workflowID, orchestratorID string, inputs map[string]any) error {
	def, err := loadDefinitionByID(workflowID)
	if err != nil {
		return err
	}

	cfg, err := config.Load(shared.ConfigPath())
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to load config", err)
	}
	orch, err := resolveOrchestrator(cfg, orchestratorID)
	if err != nil {
		return err
	}

	paths := state.New(shared.StateRoot())
	if err := paths.Bootstrap(); err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to bootstrap state tree", err)
	}

	store := workflow.NewStore(paths)
	runner := provider.New(config.AgentResolverFor(orch))
	engine := workflow.NewEngine(store, paths, runner, orch.ToEngineDefaults(), nil)

	run, runErr := engine.Start(ctx, def, workflow.StartInput{
		RunID:          fmt.Sprintf("run-%s-%s-%s", orch.ID, def.ID, uuid.New().String()),
		OrchestratorID: orch.ID,
		Inputs:         inputs,
	})
	if run == nil {
		return shared.NewExitError(shared.ExitFailed, "workflow failed to start", runErr)
	}

	printRun(run)
	if runErr != nil {
		return shared.NewExitError(shared.ExitFailed, "workflow run failed", runErr)
	}
	return nil
}

func resolveOrchestrator(cfg *config.Config, orchestratorID string) (config.Orchestrator, error) {
	if orchestratorID != "" {
		orch, err := cfg.Orchestrator(orchestratorID)
		if err != nil {
			return config.Orchestrator{}, shared.NewExitError(shared.ExitNotFound, fmt.Sprintf("unknown orchestrator %q", orchestratorID), err)
		}
		return orch, nil
	}
	if len(cfg.Orchestrators) == 1 {
		for _, orch := range cfg.Orchestrators {
			return orch, nil
		}
	}
	return config.Orchestrator{}, shared.NewExitError(shared.ExitInvalidInput,
		"multiple orchestrators configured; pass --orchestrator", nil)
}

func printRun(run *workflow.Run) {
	fmt.Printf("run:   %s\n", run.RunID)
	fmt.Printf("state: %s\n", run.State)
	if run.CurrentStepID != "" {
		fmt.Printf("step:  %s\n", run.CurrentStepID)
	}
}
