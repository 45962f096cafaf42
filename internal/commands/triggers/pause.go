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

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
)

// newPauseCommand builds `direclaw workflow triggers schedule pause <job-id>`.
func newPauseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <job-id>",
		Short: "Pause a scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := openScheduler().PauseJob(args[0]); err != nil {
				return shared.NewExitError(shared.ExitFailed, fmt.Sprintf("failed to pause job %q", args[0]), err)
			}
			fmt.Printf("job %s paused\n", args[0])
			return nil
		},
	}
}
