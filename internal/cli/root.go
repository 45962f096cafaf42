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

// Package cli builds the direclaw root Cobra command.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
)

// SetVersion sets the version information (called from main).
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand builds the root Cobra command for direclaw.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "direclaw",
		Short: "direclaw - filesystem-queued multi-agent workflow runtime",
		Long: `direclaw turns chat messages arriving on configured channels into
deterministic, resumable, multi-step AI workflows.

Run 'direclaw start' to launch the supervisor and its workers.
Run 'direclaw workflow list' to see what's available to run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	verbose, jsonOut, stateRoot, config := shared.RegisterFlagPointers()
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVar(jsonOut, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(stateRoot, "state-root", "", "Path to the state root (default: $DIRECLAW_STATE_ROOT or ~/.direclaw/state)")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: $DIRECLAW_CONFIG or ~/.direclaw/config.yaml)")

	return cmd
}

// HandleExitError handles exit errors with the correct process exit code.
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
