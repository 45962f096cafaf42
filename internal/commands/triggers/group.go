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

// Package triggers implements `direclaw workflow triggers schedule
// {add,list,remove,pause,resume,run-now}`, the cron/interval/once job
// lifecycle commands fronting internal/scheduler (SPEC_FULL.md §C.3).
package triggers

import (
	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/scheduler"
	"github.com/dmuso/direclaw/internal/state"
)

// NewGroupCommand builds the `triggers` command group nested under
// `direclaw workflow`.
func NewGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triggers",
		Short: "Manage scheduled workflow triggers",
	}
	cmd.AddCommand(newScheduleGroupCommand())
	return cmd
}

func newScheduleGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage cron/interval/once scheduled jobs",
	}
	cmd.AddCommand(newAddCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newRemoveCommand())
	cmd.AddCommand(newPauseCommand())
	cmd.AddCommand(newResumeCommand())
	cmd.AddCommand(newRunNowCommand())
	return cmd
}

func openScheduler() *scheduler.Scheduler {
	return scheduler.New(state.New(shared.StateRoot()), nil)
}
