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

package orchestrator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/config"
)

const fixtureConfigYAML = `
version: 1
orchestrators:
  orch-a:
    id: orch-a
    selector_agent_id: selector
    default_workflow_id: triage
    agents:
      worker:
        id: worker
        provider: anthropic
        model: claude-3
  orch-b:
    id: orch-b
    selector_agent_id: selector
    default_workflow_id: fallback
    agents: {}
`

func withFixtureConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureConfigYAML), 0o644))

	_, _, _, configFlag := shared.RegisterFlagPointers()
	*configFlag = path
	t.Cleanup(func() { *configFlag = "" })

	return path
}

func TestSortedOrchestratorIDs(t *testing.T) {
	cfg := &config.Config{Orchestrators: map[string]config.Orchestrator{
		"zebra": {ID: "zebra"},
		"alpha": {ID: "alpha"},
	}}
	require.Equal(t, []string{"alpha", "zebra"}, sortedOrchestratorIDs(cfg))
}

func TestSetDefaultWorkflowUpdatesConfigOnDisk(t *testing.T) {
	path := withFixtureConfig(t)

	cmd := NewGroupCommand()
	cmd.SetArgs([]string{"set-default-workflow", "orch-a", "new-workflow"})
	require.NoError(t, cmd.Execute())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "new-workflow", cfg.Orchestrators["orch-a"].DefaultWorkflowID)
	// Untouched orchestrators must survive the mutation.
	require.Equal(t, "fallback", cfg.Orchestrators["orch-b"].DefaultWorkflowID)
}

func TestSetDefaultWorkflowUnknownOrchestratorFails(t *testing.T) {
	withFixtureConfig(t)

	cmd := NewGroupCommand()
	cmd.SetArgs([]string{"set-default-workflow", "nonexistent", "wf"})
	err := cmd.Execute()
	require.Error(t, err)

	var exitErr *shared.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, shared.ExitFailed, exitErr.Code)
}

func TestShowUnknownOrchestratorReturnsNotFound(t *testing.T) {
	withFixtureConfig(t)

	cmd := NewGroupCommand()
	cmd.SetArgs([]string{"show", "nonexistent"})
	err := cmd.Execute()
	require.Error(t, err)

	var exitErr *shared.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, shared.ExitNotFound, exitErr.Code)
}

func TestShowKnownOrchestratorSucceeds(t *testing.T) {
	withFixtureConfig(t)

	cmd := NewGroupCommand()
	cmd.SetArgs([]string{"show", "orch-a"})
	require.NoError(t, cmd.Execute())
}

func TestAgentListRequiresOrchestratorFlag(t *testing.T) {
	withFixtureConfig(t)

	cmd := NewAgentGroupCommand()
	cmd.SetArgs([]string{"list"})
	err := cmd.Execute()
	require.Error(t, err)

	var exitErr *shared.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, shared.ExitInvalidInput, exitErr.Code)
}

func TestAgentListSucceedsForKnownOrchestrator(t *testing.T) {
	withFixtureConfig(t)

	cmd := NewAgentGroupCommand()
	cmd.SetArgs([]string{"list", "--orchestrator", "orch-a"})
	require.NoError(t, cmd.Execute())
}

func TestAgentShowUnknownAgentReturnsNotFound(t *testing.T) {
	withFixtureConfig(t)

	cmd := NewAgentGroupCommand()
	cmd.SetArgs([]string{"show", "nonexistent", "--orchestrator", "orch-a"})
	err := cmd.Execute()
	require.Error(t, err)

	var exitErr *shared.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, shared.ExitNotFound, exitErr.Code)
}

func TestAgentShowKnownAgentSucceeds(t *testing.T) {
	withFixtureConfig(t)

	cmd := NewAgentGroupCommand()
	cmd.SetArgs([]string{"show", "worker", "--orchestrator", "orch-a"})
	require.NoError(t, cmd.Execute())
}
