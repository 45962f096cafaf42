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
)

// NewProgressCommand builds `direclaw workflow progress <run-id>`,
// printing the lightweight, frequently-rewritten Progress record
// instead of the full Run history.
func NewProgressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <run-id>",
		Short: "Show a run's lightweight progress snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgress(args[0])
		},
	}
}

func runProgress(runID string) error {
	progress, err := openStore().LoadProgress(runID)
	if err != nil {
		return shared.NewExitError(shared.ExitNotFound, fmt.Sprintf("workflow run %q was not found", runID), err)
	}

	if shared.GetJSON() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(progress)
	}

	fmt.Printf("run:     %s\n", progress.RunID)
	fmt.Printf("state:   %s\n", progress.State)
	fmt.Printf("step:    %s\n", progress.CurrentStepID)
	fmt.Printf("attempt: %d\n", progress.Attempt)
	if progress.Message != "" {
		fmt.Printf("message: %s\n", progress.Message)
	}
	return nil
}
