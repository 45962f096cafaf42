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

// Package workflow implements `direclaw workflow ...`: inspecting and
// driving workflow runs from the command line.
package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/pkg/workflow"
)

// NewListCommand builds `direclaw workflow list`.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflow definitions in the workflows directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList()
		},
	}
}

func runList() error {
	dir := shared.WorkflowsDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("no workflows directory at %s\n", dir)
			return nil
		}
		return shared.NewExitError(shared.ExitFailed, "failed to read workflows directory", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		def, err := workflow.LoadDefinition(filepath.Join(dir, e.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", e.Name(), err)
			continue
		}
		ids = append(ids, fmt.Sprintf("%-24s version=%-8s steps=%d", def.ID, def.Version, len(def.Steps)))
	}
	sort.Strings(ids)
	for _, line := range ids {
		fmt.Println(line)
	}
	return nil
}
