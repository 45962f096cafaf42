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

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/config"
	"github.com/dmuso/direclaw/internal/provider"
	"github.com/dmuso/direclaw/internal/supervisor"
)

// NewDoctorCommand builds `direclaw doctor`, one diagnostic per line in
// the spirit of the original implementation's doctor command
// (SPEC_FULL.md §C.4).
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics against the current state root and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			runDoctor()
			return nil
		},
	}
}

func runDoctor() {
	ok := true
	report := func(pass bool, format string, a ...any) {
		status := "ok"
		if !pass {
			status = "FAIL"
			ok = false
		}
		fmt.Printf("[%s] %s\n", status, fmt.Sprintf(format, a...))
	}

	stateRoot := shared.StateRoot()
	lockPath := filepath.Join(stateRoot, "supervisor.lock")

	if info, err := os.Stat(stateRoot); err != nil {
		report(false, "state root %s does not exist yet (run 'direclaw start' to bootstrap it)", stateRoot)
	} else if !info.IsDir() {
		report(false, "state root %s exists but is not a directory", stateRoot)
	} else {
		probe := filepath.Join(stateRoot, ".doctor-write-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
			report(false, "state root %s is not writable: %v", stateRoot, err)
		} else {
			os.Remove(probe)
			report(true, "state root %s is writable", stateRoot)
		}
	}

	switch ownership, pid, err := supervisor.Status(lockPath); {
	case err != nil:
		report(false, "failed to inspect supervisor lock: %v", err)
	case ownership == supervisor.OwnershipStale:
		report(false, "supervisor lock is stale (recorded pid %d is not running); next start clears it", pid)
	case ownership == supervisor.OwnershipRunning:
		report(true, "supervisor is running (pid %d)", pid)
	default:
		report(true, "supervisor is not running")
	}

	cfg, err := config.Load(shared.ConfigPath())
	if err != nil {
		report(false, "failed to load config at %s: %v", shared.ConfigPath(), err)
	} else {
		report(true, "config loaded from %s (%d orchestrator(s))", shared.ConfigPath(), len(cfg.Orchestrators))
		for orchID, orch := range cfg.Orchestrators {
			for agentID, agent := range orch.Agents {
				bin := provider.ResolveBinary(agent.Provider)
				if _, err := exec.LookPath(bin); err != nil {
					report(false, "orchestrator %q agent %q: provider binary %q not found on PATH", orchID, agentID, bin)
				} else {
					report(true, "orchestrator %q agent %q: provider binary %q resolved", orchID, agentID, bin)
				}
			}
		}
	}

	if !ok {
		os.Exit(shared.ExitFailed)
	}
}
