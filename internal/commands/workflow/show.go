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

package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/pkg/workflow"
)

// NewShowCommand builds `direclaw workflow show <id>`.
func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a workflow definition's steps and limits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(args[0])
		},
	}
}

func runShow(id string) error {
	def, err := loadDefinitionByID(id)
	if err != nil {
		return err
	}

	if shared.GetJSON() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(def)
	}

	fmt.Printf("id:      %s\n", def.ID)
	fmt.Printf("version: %s\n", def.Version)
	fmt.Printf("inputs:  %v\n", def.Inputs)
	fmt.Println("steps:")
	for _, step := range def.Steps {
		fmt.Printf("  - %s (%s) agent=%s\n", step.ID, step.Type, step.Agent)
		switch step.Type {
		case workflow.StepAgentTask:
			fmt.Printf("      next=%q outputs=%v\n", step.Next, step.Outputs)
		case workflow.StepAgentReview:
			fmt.Printf("      on_approve=%q on_reject=%q\n", step.OnApprove, step.OnReject)
		}
	}
	return nil
}

func loadDefinitionByID(id string) (*workflow.Definition, error) {
	path := filepath.Join(shared.WorkflowsDir(), id+".yaml")
	def, err := workflow.LoadDefinition(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, shared.NewExitError(shared.ExitNotFound, fmt.Sprintf("unknown workflow %q", id), err)
		}
		return nil, shared.NewExitError(shared.ExitInvalidInput, fmt.Sprintf("failed to load workflow %q", id), err)
	}
	return def, nil
}
