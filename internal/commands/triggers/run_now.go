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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
)

// newRunNowCommand builds `direclaw workflow triggers schedule run-now <job-id>`,
// dispatching a job immediately regardless of its NextRunAt.
func newRunNowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run-now <job-id>",
		Short: "Dispatch a scheduled job immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := openScheduler().RunNow(args[0], time.Now().UTC()); err != nil {
				return shared.NewExitError(shared.ExitFailed, fmt.Sprintf("failed to run job %q", args[0]), err)
			}
			fmt.Printf("job %s dispatched\n", args[0])
			return nil
		},
	}
}
