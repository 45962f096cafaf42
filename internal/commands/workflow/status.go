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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/state"
	"github.com/dmuso/direclaw/pkg/workflow"
)

// NewStatusCommand builds `direclaw workflow status <run-id>`.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show a run's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(args[0])
		},
	}
}

func openStore() *workflow.Store {
	return workflow.NewStore(state.New(shared.StateRoot()))
}

func runStatus(runID string) error {
	run, err := openStore().LoadRun(runID)
	if err != nil {
		return shared.NewExitError(shared.ExitNotFound, fmt.Sprintf("workflow run %q was not found", runID), err)
	}

	if shared.GetJSON() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Printf("run:        %s\n", run.RunID)
	fmt.Printf("workflow:   %s\n", run.WorkflowID)
	fmt.Printf("state:      %s\n", run.State)
	fmt.Printf("step:       %s\n", run.CurrentStepID)
	fmt.Printf("attempt:    %d\n", run.Attempt)
	fmt.Printf("iterations: %d\n", run.IterationCount)
	fmt.Printf("updated_at: %s\n", run.UpdatedAt)
	return nil
}
