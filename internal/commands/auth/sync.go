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

// Package auth implements `direclaw auth sync`, which resolves every
// configured keychain: secret reference into a plaintext file under the
// state root's secrets directory before the supervisor starts.
package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/config"
	"github.com/dmuso/direclaw/internal/secrets"
	"github.com/dmuso/direclaw/internal/state"
)

const keychainService = "direclaw"

// NewGroupCommand builds the `auth` command group.
func NewGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider/channel credentials",
	}
	cmd.AddCommand(newSyncCommand())
	return cmd
}

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Resolve keychain: secret references into the state root's secrets directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd)
		},
	}
}

func runSync(cmd *cobra.Command) error {
	cfg, err := config.Load(shared.ConfigPath())
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to load config", err)
	}
	if len(cfg.Secrets) == 0 {
		fmt.Println("no secrets configured; nothing to sync")
		return nil
	}

	paths := state.New(shared.StateRoot())
	provider := secrets.NewKeychainProvider(keychainService)
	if err := secrets.Sync(cmd.Context(), provider, paths.SecretsDir, cfg.Secrets); err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to sync secrets", err)
	}
	fmt.Printf("synced %d secret(s) to %s\n", len(cfg.Secrets), paths.SecretsDir)
	return nil
}
