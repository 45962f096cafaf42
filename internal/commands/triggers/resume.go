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

// newResumeCommand builds `direclaw workflow triggers schedule resume <job-id>`.
func newResumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <job-id>",
		Short: "Resume a paused scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := openScheduler().ResumeJob(args[0], time.Now().UTC()); err != nil {
				return shared.NewExitError(shared.ExitFailed, fmt.Sprintf("failed to resume job %q", args[0]), err)
			}
			fmt.Printf("job %s resumed\n", args[0])
			return nil
		},
	}
}
