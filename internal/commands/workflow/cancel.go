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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/state"
	"github.com/dmuso/direclaw/pkg/workflow"
)

// NewCancelCommand builds `direclaw workflow cancel <run-id>`.
func NewCancelCommand() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel <run-id>",
		Short: "Cancel a run, moving it to the terminal canceled state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(args[0], reason)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "canceled via CLI", "Reason recorded on the run")
	return cmd
}

func runCancel(runID, reason string) error {
	paths := state.New(shared.StateRoot())
	store := workflow.NewStore(paths)
	engine := workflow.NewEngine(store, paths, nil, workflow.Defaults{}, nil)

	run, err := engine.Cancel(runID, reason)
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, fmt.Sprintf("failed to cancel run %q", runID), err)
	}
	fmt.Printf("run %s canceled\n", run.RunID)
	return nil
}
