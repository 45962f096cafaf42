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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/supervisor"
)

// NewStatusCommand builds `direclaw status`.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show supervisor and worker status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	stateRoot := shared.StateRoot()
	lockPath := filepath.Join(stateRoot, "supervisor.lock")
	statePath := filepath.Join(stateRoot, "supervisor.state")

	ownership, pid, err := supervisor.Status(lockPath)
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to inspect supervisor lock", err)
	}

	st, err := supervisor.LoadState(statePath)
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to load supervisor state", err)
	}

	if shared.GetJSON() {
		out := struct {
			Ownership string                             `json:"ownership"`
			PID       int                                `json:"pid"`
			State     *supervisor.State                  `json:"state"`
		}{Ownership: string(ownership), PID: pid, State: st}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("ownership: %s\n", ownership)
	if ownership == supervisor.OwnershipRunning {
		fmt.Printf("pid: %d\n", pid)
		fmt.Printf("started_at: %s\n", st.StartedAt)
	}
	if st.LastError != "" {
		fmt.Printf("last_error: %s\n", st.LastError)
	}
	if len(st.Workers) == 0 {
		fmt.Println("workers: none reported yet")
		return nil
	}
	fmt.Println("workers:")
	for id, w := range st.Workers {
		line := fmt.Sprintf("  %-24s %-10s heartbeat=%s", id, w.State, w.LastHeartbeat.Format("15:04:05"))
		if w.LastError != "" {
			line += fmt.Sprintf(" last_error=%q", w.LastError)
		}
		fmt.Println(line)
	}
	return nil
}
