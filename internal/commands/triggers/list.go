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

package triggers

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
)

// newListCommand builds `direclaw workflow triggers schedule list`.
func newListCommand() *cobra.Command {
	var orchestratorID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs for an orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(orchestratorID)
		},
	}
	cmd.Flags().StringVar(&orchestratorID, "orchestrator", "", "Orchestrator id to list jobs for (required)")
	return cmd
}

func runList(orchestratorID string) error {
	if orchestratorID == "" {
		return shared.NewExitError(shared.ExitInvalidInput, "--orchestrator is required", nil)
	}
	jobs, err := openScheduler().ListJobsForOrchestrator(orchestratorID)
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to list jobs", err)
	}

	if shared.GetJSON() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}

	for _, job := range jobs {
		fmt.Printf("%s\tstate=%s\tkind=%s\tnext_run_at=%s\n",
			job.JobID, job.State, job.Schedule.Kind, job.NextRunAt.Format(time.RFC3339))
	}
	return nil
}
