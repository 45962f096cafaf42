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
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/lifecycle"
	"github.com/dmuso/direclaw/internal/supervisor"
)

// NewStartCommand builds `direclaw start`.
func NewStartCommand() *cobra.Command {
	var foreground bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the direclaw supervisor",
		Long: `Start the direclaw supervisor in the background.

The start command is idempotent: if a supervisor is already running and
holding the lock, it exits successfully without starting a second one.

Use --foreground to run direclawd directly in the current terminal
instead of spawning a detached background process (useful under
systemd or in a container where the init system supervises it).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(foreground)
		},
	}

	cmd.Flags().BoolVar(&foreground, "foreground", false, "Run in the foreground instead of spawning a detached daemon")
	return cmd
}

func runStart(foreground bool) error {
	stateRoot := shared.StateRoot()
	lockPath := filepath.Join(stateRoot, "supervisor.lock")

	if state, pid, err := supervisor.Status(lockPath); err == nil && state == supervisor.OwnershipRunning {
		fmt.Printf("direclaw is already running (pid %d)\n", pid)
		return nil
	}

	daemonBinary, err := resolveDaemonBinary()
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to locate direclawd binary", err)
	}

	args := []string{
		"--state-root", stateRoot,
		"--config", shared.ConfigPath(),
		"--workflows-dir", shared.WorkflowsDir(),
	}

	if foreground {
		c := exec.Command(daemonBinary, args...)
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		c.Stdin = os.Stdin
		return c.Run()
	}

	if err := os.MkdirAll(filepath.Join(stateRoot, "logs"), 0o755); err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to create logs directory", err)
	}
	logPath := filepath.Join(stateRoot, "logs", "direclawd.out.log")

	pid, err := lifecycle.NewSpawner().SpawnDetached(daemonBinary, args, logPath)
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to start direclawd", err)
	}

	// Give the daemon a moment to acquire the lock before reporting
	// success, so a caller scripting `start && status` sees "running".
	time.Sleep(200 * time.Millisecond)
	fmt.Printf("direclaw started (pid %d)\n", pid)
	return nil
}

func resolveDaemonBinary() (string, error) {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "direclawd")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return exec.LookPath("direclawd")
}
