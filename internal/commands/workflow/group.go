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
	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/triggers"
)

// NewGroupCommand builds the `direclaw workflow` command group:
// list/show/run/status/progress/cancel plus the nested `triggers
// schedule` subtree (SPEC_FULL.md §C.3, §D).
func NewGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect and drive workflow definitions and runs",
	}
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewShowCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewProgressCommand())
	cmd.AddCommand(NewCancelCommand())
	cmd.AddCommand(triggers.NewGroupCommand())
	return cmd
}
