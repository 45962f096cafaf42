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

package channel

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/queue"
)

// NewChannelsGroupCommand builds the `channels` command group: Slack
// connector diagnostics plus the transport-agnostic `reset` recovery
// command. No live Slack socket-mode connection exists in this codebase
// (spec.md §1a); the slack subcommands report that plainly rather than
// pretending to reach a real session.
func NewChannelsGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Channel connector diagnostics and queue recovery",
	}
	cmd.AddCommand(newSlackGroupCommand())
	cmd.AddCommand(newResetCommand())
	return cmd
}

func newSlackGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slack",
		Short: "Slack connector diagnostics (no live adapter is wired in this build)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Sync Slack channel membership into channel profiles",
		RunE:  notWired,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "socket-status",
		Short: "Report the Slack socket-mode connection status",
		RunE:  notWired,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "socket-reconnect",
		Short: "Force the Slack socket-mode connection to reconnect",
		RunE:  notWired,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "backfill-run",
		Short: "Replay a channel's history through the incoming queue",
		RunE:  notWired,
	})
	return cmd
}

func notWired(cmd *cobra.Command, args []string) error {
	return shared.NewExitError(shared.ExitFailed,
		"no Slack connector is wired in this build; channel ingress/egress is an external collaborator (see channel-profile and send)", nil)
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Recover queue entries stuck in processing back to incoming",
		RunE: func(cmd *cobra.Command, args []string) error {
			recovered, err := queue.RecoverProcessingQueueEntries(shared.StateRoot())
			if err != nil {
				return shared.NewExitError(shared.ExitFailed, "failed to recover processing queue", err)
			}
			fmt.Printf("recovered %d stuck message(s)\n", len(recovered))
			return nil
		},
	}
}
