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

// Package orchestrator implements `direclaw orchestrator
// list|show|set-default-workflow` and `direclaw orchestrator-agent
// list|show`, read/mutate commands over the orchestrators configured in
// config.yaml.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/config"
)

// NewGroupCommand builds the `orchestrator` command group.
func NewGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "Inspect and configure orchestrators",
	}
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newSetDefaultWorkflowCommand())
	return cmd
}

// NewAgentGroupCommand builds the `orchestrator-agent` command group.
func NewAgentGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orchestrator-agent",
		Short: "Inspect agents configured for an orchestrator",
	}
	cmd.AddCommand(newAgentListCommand())
	cmd.AddCommand(newAgentShowCommand())
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(shared.ConfigPath())
	if err != nil {
		return nil, shared.NewExitError(shared.ExitFailed, "failed to load config", err)
	}
	return cfg, nil
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured orchestrators",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ids := sortedOrchestratorIDs(cfg)

			if shared.GetJSON() {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg.Orchestrators)
			}
			for _, id := range ids {
				orch := cfg.Orchestrators[id]
				fmt.Printf("%s\tselector=%s\tdefault_workflow=%s\tagents=%d\n",
					orch.ID, orch.SelectorAgentID, orch.DefaultWorkflowID, len(orch.Agents))
			}
			return nil
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one orchestrator's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			orch, err := cfg.Orchestrator(args[0])
			if err != nil {
				return shared.NewExitError(shared.ExitNotFound, fmt.Sprintf("unknown orchestrator %q", args[0]), err)
			}

			if shared.GetJSON() {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(orch)
			}
			fmt.Printf("id:                %s\n", orch.ID)
			fmt.Printf("selector_agent:    %s\n", orch.SelectorAgentID)
			fmt.Printf("selection_retries: %d\n", orch.SelectionMaxRetries)
			fmt.Printf("selector_timeout:  %ds\n", orch.SelectorTimeoutSeconds)
			fmt.Printf("default_workflow:  %s\n", orch.DefaultWorkflowID)
			fmt.Printf("workflow_ids:      %v\n", orch.WorkflowIDs)
			fmt.Printf("agents:            %d\n", len(orch.Agents))
			return nil
		},
	}
}

func newSetDefaultWorkflowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default-workflow <orchestrator-id> <workflow-id>",
		Short: "Set an orchestrator's fallback workflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestratorID, workflowID := args[0], args[1]
			err := config.Mutate(context.Background(), shared.ConfigPath(), func(cfg *config.Config) error {
				orch, ok := cfg.Orchestrators[orchestratorID]
				if !ok {
					return fmt.Errorf("unknown orchestrator %q", orchestratorID)
				}
				orch.DefaultWorkflowID = workflowID
				cfg.Orchestrators[orchestratorID] = orch
				return nil
			})
			if err != nil {
				return shared.NewExitError(shared.ExitFailed, "failed to update config", err)
			}
			fmt.Printf("orchestrator %s default workflow set to %s\n", orchestratorID, workflowID)
			return nil
		},
	}
}

func newAgentListCommand() *cobra.Command {
	var orchestratorID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents configured for an orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orchestratorID == "" {
				return shared.NewExitError(shared.ExitInvalidInput, "--orchestrator is required", nil)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			orch, err := cfg.Orchestrator(orchestratorID)
			if err != nil {
				return shared.NewExitError(shared.ExitNotFound, fmt.Sprintf("unknown orchestrator %q", orchestratorID), err)
			}

			ids := make([]string, 0, len(orch.Agents))
			for id := range orch.Agents {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			if shared.GetJSON() {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(orch.Agents)
			}
			for _, id := range ids {
				agent := orch.Agents[id]
				fmt.Printf("%s\tprovider=%s\tmodel=%s\n", agent.ID, agent.Provider, agent.Model)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&orchestratorID, "orchestrator", "", "Orchestrator id to list agents for (required)")
	return cmd
}

func newAgentShowCommand() *cobra.Command {
	var orchestratorID string

	cmd := &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Show one agent's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if orchestratorID == "" {
				return shared.NewExitError(shared.ExitInvalidInput, "--orchestrator is required", nil)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			orch, err := cfg.Orchestrator(orchestratorID)
			if err != nil {
				return shared.NewExitError(shared.ExitNotFound, fmt.Sprintf("unknown orchestrator %q", orchestratorID), err)
			}
			agent, err := orch.ResolveAgent(args[0])
			if err != nil {
				return shared.NewExitError(shared.ExitNotFound, fmt.Sprintf("unknown agent %q", args[0]), err)
			}

			if shared.GetJSON() {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(agent)
			}
			fmt.Printf("id:       %s\n", agent.ID)
			fmt.Printf("provider: %s\n", agent.Provider)
			fmt.Printf("model:    %s\n", agent.Model)
			return nil
		},
	}
	cmd.Flags().StringVar(&orchestratorID, "orchestrator", "", "Owning orchestrator id (required)")
	return cmd
}

func sortedOrchestratorIDs(cfg *config.Config) []string {
	ids := make([]string, 0, len(cfg.Orchestrators))
	for id := range cfg.Orchestrators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
