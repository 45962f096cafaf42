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

package controller

import (
	"fmt"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/lifecycle"
	"github.com/dmuso/direclaw/internal/supervisor"
)

// defaultStopTimeout matches spec.md §4.8 "stop_active_supervisor waits
// up to a timeout (default 5 s)".
const defaultStopTimeout = 5 * time.Second

// NewStopCommand builds `direclaw stop`.
func NewStopCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the direclaw supervisor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultStopTimeout, "How long to wait for a graceful stop before forcing")
	return cmd
}

func runStop(timeout time.Duration) error {
	stateRoot := shared.StateRoot()
	lockPath := filepath.Join(stateRoot, "supervisor.lock")
	requestPath := filepath.Join(stateRoot, "supervisor.request")

	state, pid, err := supervisor.Status(lockPath)
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to inspect supervisor lock", err)
	}
	if state == supervisor.OwnershipNotRunning {
		fmt.Println("direclaw is not running")
		return nil
	}
	if state == supervisor.OwnershipStale {
		fmt.Println("direclaw is not running (stale lock cleared on next start)")
		return nil
	}

	if err := supervisor.RequestStop(requestPath); err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to write stop request", err)
	}

	if err := lifecycle.WaitForExit(pid, timeout); err != nil {
		if sigErr := lifecycle.SendSignal(pid, syscall.SIGKILL); sigErr != nil {
			return shared.NewExitError(shared.ExitFailed, "graceful stop timed out and forced kill failed", sigErr)
		}
		fmt.Printf("direclaw did not stop gracefully within %v; forced\n", timeout)
		return nil
	}

	fmt.Println("direclaw stopped")
	return nil
}
