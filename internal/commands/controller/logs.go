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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
)

// NewLogsCommand builds `direclaw logs`.
func NewLogsCommand() *cobra.Command {
	var (
		name string
		tail int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of a named append-only log file",
		Long: `Prints lines from one of direclaw's named log files
(runtime, engine, security, memory; spec.md §2 "Observability").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(name, tail)
		},
	}
	cmd.Flags().StringVar(&name, "name", "runtime", "Log name: runtime, engine, security, or memory")
	cmd.Flags().IntVar(&tail, "tail", 50, "Number of trailing lines to print")
	return cmd
}

func runLogs(name string, tail int) error {
	path := filepath.Join(shared.StateRoot(), "logs", name+".log")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return shared.NewExitError(shared.ExitNotFound, fmt.Sprintf("no log file named %q", name), err)
		}
		return shared.NewExitError(shared.ExitFailed, "failed to open log file", err)
	}
	defer f.Close()

	lines, err := tailLines(f, tail)
	if err != nil {
		return shared.NewExitError(shared.ExitFailed, "failed to read log file", err)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

// tailLines reads the whole file and keeps only the last n lines. The
// named logs are append-only and bounded by daily operational use, so a
// full read is acceptable rather than seeking from the end byte-wise.
func tailLines(r io.Reader, n int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var all []string
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(all) <= n {
		return all, nil
	}
	return all[len(all)-n:], nil
}
