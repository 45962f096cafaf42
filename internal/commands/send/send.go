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

// Package send implements `direclaw send`, a CLI-as-channel-adapter
// that writes one incoming queue message directly, for local testing
// without a real chat channel wired up.
package send

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/config"
	"github.com/dmuso/direclaw/internal/queue"
	"github.com/dmuso/direclaw/internal/state"
)

// NewCommand builds `direclaw send <channel-profile-id> <message>`.
func NewCommand() *cobra.Command {
	var sender string

	cmd := &cobra.Command{
		Use:   "send <channel-profile-id> <message>",
		Short: "Enqueue a message on a configured channel profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(args[0], args[1], sender)
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "cli", "Sender id recorded on the message")
	return cmd
}

func runSend(channelProfileID, message, sender string) error {
	cfg, err := config.Load(shared.ConfigPath())
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to load config", err)
	}
	profile, ok := cfg.ChannelProfiles[channelProfileID]
	if !ok {
		return shared.NewExitError(shared.ExitNotFound, fmt.Sprintf("unknown channel profile %q", channelProfileID), nil)
	}

	paths := state.New(shared.StateRoot())
	if err := paths.Bootstrap(); err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to bootstrap state tree", err)
	}

	msgID := uuid.New().String()
	_, err = queue.EnqueueIncoming(queue.PathsFromStateRoot(paths.Root), queue.IncomingMessage{
		Channel:          profile.Channel,
		ChannelProfileID: channelProfileID,
		Sender:           sender,
		SenderID:         sender,
		Message:          message,
		Timestamp:        time.Now().UTC().Unix(),
		MessageID:        msgID,
	})
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to enqueue message", err)
	}

	fmt.Printf("enqueued message %s on channel profile %q\n", msgID, channelProfileID)
	return nil
}
