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

// Package channel implements `direclaw channel-profile
// list|show|add|remove` and the channel-adjacent diagnostic commands
// under `direclaw channels`. No channel transport (Slack or otherwise)
// is wired in this codebase (spec.md §1a non-goal); these commands only
// read and mutate channel-profile configuration and the on-disk queue,
// the collaborator surface a real adapter would sit behind.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/config"
)

// NewProfileGroupCommand builds the `channel-profile` command group.
func NewProfileGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel-profile",
		Short: "Manage channel profiles (channel endpoint -> orchestrator bindings)",
	}
	cmd.AddCommand(newProfileListCommand())
	cmd.AddCommand(newProfileShowCommand())
	cmd.AddCommand(newProfileAddCommand())
	cmd.AddCommand(newProfileRemoveCommand())
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(shared.ConfigPath())
	if err != nil {
		return nil, shared.NewExitError(shared.ExitFailed, "failed to load config", err)
	}
	return cfg, nil
}

func newProfileListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured channel profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(cfg.ChannelProfiles))
			for id := range cfg.ChannelProfiles {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			if shared.GetJSON() {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg.ChannelProfiles)
			}
			for _, id := range ids {
				p := cfg.ChannelProfiles[id]
				fmt.Printf("%s\tchannel=%s\torchestrator=%s\n", p.ID, p.Channel, p.OrchestratorID)
			}
			return nil
		},
	}
}

func newProfileShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one channel profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			profile, ok := cfg.ChannelProfiles[args[0]]
			if !ok {
				return shared.NewExitError(shared.ExitNotFound, fmt.Sprintf("unknown channel profile %q", args[0]), nil)
			}

			if shared.GetJSON() {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(profile)
			}
			fmt.Printf("id:           %s\n", profile.ID)
			fmt.Printf("channel:      %s\n", profile.Channel)
			fmt.Printf("orchestrator: %s\n", profile.OrchestratorID)
			return nil
		},
	}
}

func newProfileAddCommand() *cobra.Command {
	var channelName, orchestratorID string

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a channel profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if channelName == "" || orchestratorID == "" {
				return shared.NewExitError(shared.ExitInvalidInput, "--channel and --orchestrator are required", nil)
			}
			err := config.Mutate(context.Background(), shared.ConfigPath(), func(cfg *config.Config) error {
				if _, ok := cfg.Orchestrators[orchestratorID]; !ok {
					return fmt.Errorf("unknown orchestrator %q", orchestratorID)
				}
				cfg.ChannelProfiles[id] = config.ChannelProfile{
					ID:             id,
					Channel:        channelName,
					OrchestratorID: orchestratorID,
				}
				return nil
			})
			if err != nil {
				return shared.NewExitError(shared.ExitFailed, "failed to update config", err)
			}
			fmt.Printf("channel profile %s added\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&channelName, "channel", "", "Channel name (e.g. slack)")
	cmd.Flags().StringVar(&orchestratorID, "orchestrator", "", "Owning orchestrator id")
	return cmd
}

func newProfileRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a channel profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			err := config.Mutate(context.Background(), shared.ConfigPath(), func(cfg *config.Config) error {
				if _, ok := cfg.ChannelProfiles[id]; !ok {
					return fmt.Errorf("unknown channel profile %q", id)
				}
				delete(cfg.ChannelProfiles, id)
				return nil
			})
			if err != nil {
				return shared.NewExitError(shared.ExitFailed, "failed to update config", err)
			}
			fmt.Printf("channel profile %s removed\n", id)
			return nil
		},
	}
}
