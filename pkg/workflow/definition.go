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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmuso/direclaw/pkg/direrr"
)

// LoadDefinition reads and validates a workflow definition file.
func LoadDefinition(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &direrr.IOError{Path: path, Op: "read", Err: err}
	}

	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, &direrr.ParseError{Path: path, Err: err}
	}

	if err := ValidateDefinition(&def); err != nil {
		return nil, &direrr.ConfigError{Key: def.ID, Reason: err.Error()}
	}

	return &def, nil
}

// ValidateDefinition checks structural invariants: step ids are unique,
// every next/on_approve/on_reject target names an existing step,
// agent_review steps declare on_approve/on_reject (not next), agent_task
// steps declare next or are the last step, and output_files keys are a
// subset of outputs.
func ValidateDefinition(def *Definition) error {
	if def.ID == "" {
		return fmt.Errorf("workflow definition missing id")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("workflow %q declares no steps", def.ID)
	}

	seen := make(map[string]struct{}, len(def.Steps))
	for _, step := range def.Steps {
		if step.ID == "" {
			return fmt.Errorf("workflow %q: step missing id", def.ID)
		}
		if _, dup := seen[step.ID]; dup {
			return fmt.Errorf("workflow %q: duplicate step id %q", def.ID, step.ID)
		}
		seen[step.ID] = struct{}{}
	}

	for i, step := range def.Steps {
		if step.Type == StepAgentTask && len(step.Outputs) == 0 {
			return fmt.Errorf("workflow %q: step %q declares no outputs", def.ID, step.ID)
		}
		switch step.Type {
		case StepAgentTask:
			if step.Next != "" {
				if _, ok := seen[step.Next]; !ok {
					return fmt.Errorf("workflow %q: step %q.next references unknown step %q", def.ID, step.ID, step.Next)
				}
			} else if i != len(def.Steps)-1 {
				return fmt.Errorf("workflow %q: step %q has no next but is not the terminal step", def.ID, step.ID)
			}
			if step.OnApprove != "" || step.OnReject != "" {
				return fmt.Errorf("workflow %q: step %q is agent_task but declares on_approve/on_reject", def.ID, step.ID)
			}
		case StepAgentReview:
			if step.OnApprove == "" || step.OnReject == "" {
				return fmt.Errorf("workflow %q: step %q is agent_review and must declare on_approve and on_reject", def.ID, step.ID)
			}
			if _, ok := seen[step.OnApprove]; !ok {
				return fmt.Errorf("workflow %q: step %q.on_approve references unknown step %q", def.ID, step.ID, step.OnApprove)
			}
			if _, ok := seen[step.OnReject]; !ok {
				return fmt.Errorf("workflow %q: step %q.on_reject references unknown step %q", def.ID, step.ID, step.OnReject)
			}
			if step.Next != "" {
				return fmt.Errorf("workflow %q: step %q is agent_review but declares next", def.ID, step.ID)
			}
		default:
			return fmt.Errorf("workflow %q: step %q has unknown type %q", def.ID, step.ID, step.Type)
		}

		outputKeys := make(map[string]struct{}, len(step.Outputs))
		for _, key := range step.Outputs {
			outputKeys[key] = struct{}{}
		}
		for key := range step.OutputFiles {
			if _, ok := outputKeys[key]; !ok {
				return fmt.Errorf("workflow %q: step %q.output_files has key %q not in outputs", def.ID, step.ID, key)
			}
		}
	}

	return nil
}
