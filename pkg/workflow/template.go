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
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmuso/direclaw/pkg/direrr"
)

// placeholderPattern matches `{{ name }}` tokens, the grammar spec.md §6
// recognizes for step prompts and contexts.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// RenderContext carries every value a placeholder can resolve to when
// rendering a step's prompt or context markdown.
type RenderContext struct {
	Run           *Run
	Step          Step
	RunWorkspace  string
	OutputPaths   map[string]string
	RuntimeExtra  map[string]any
	ChannelProfileID string
	ConversationID   string
	SenderID         string
	SelectorID       string
}

// RenderStepTemplate substitutes every recognized placeholder in text.
// An unrecognized placeholder is a validation failure rather than being
// left in place or silently dropped, per spec.md §6.
func RenderStepTemplate(text string, rc RenderContext) (string, error) {
	var renderErr error
	rendered := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		if renderErr != nil {
			return match
		}
		name := strings.TrimSpace(placeholderPattern.FindStringSubmatch(match)[1])
		value, err := resolveStepPlaceholder(name, rc)
		if err != nil {
			renderErr = err
			return match
		}
		return value
	})
	if renderErr != nil {
		return "", renderErr
	}
	return rendered, nil
}

func resolveStepPlaceholder(name string, rc RenderContext) (string, error) {
	switch {
	case name == "workflow.run_id":
		return rc.Run.RunID, nil
	case name == "workflow.step_id":
		return rc.Step.ID, nil
	case name == "workflow.attempt":
		return strconv.Itoa(rc.Run.Attempt), nil
	case name == "workflow.run_workspace":
		return rc.RunWorkspace, nil
	case name == "workflow.output_schema_json":
		return marshalJSON(rc.Step.Outputs)
	case name == "workflow.output_paths_json":
		return marshalJSON(rc.OutputPaths)
	case name == "workflow.runtime_context_json":
		return marshalJSON(rc.RuntimeExtra)
	case strings.HasPrefix(name, "workflow.output_paths."):
		key := strings.TrimPrefix(name, "workflow.output_paths.")
		path, ok := rc.OutputPaths[key]
		if !ok {
			return "", &direrr.StepPromptRenderError{RunID: rc.Run.RunID, StepID: rc.Step.ID, Identifier: name}
		}
		return path, nil
	case name == "workflow.channel_profile_id":
		return rc.ChannelProfileID, nil
	case name == "workflow.conversation_id":
		return rc.ConversationID, nil
	case name == "workflow.sender_id":
		return rc.SenderID, nil
	case name == "workflow.selector_id":
		return rc.SelectorID, nil
	case name == "workflow.channel":
		return channelFromRun(rc.Run), nil
	case strings.HasPrefix(name, "inputs."):
		return resolveInputsPlaceholder(name, rc)
	case strings.HasPrefix(name, "state."):
		return resolveDottedPath(name, map[string]any{"state": stateBag(rc)})
	case strings.HasPrefix(name, "steps."):
		return resolveStepsOutputPlaceholder(name, rc)
	default:
		return "", &direrr.StepPromptRenderError{RunID: rc.Run.RunID, StepID: rc.Step.ID, Identifier: name}
	}
}

// resolveInputsPlaceholder rejects the two input keys spec.md §6 carves
// out: the memory bulletin and its citations are injected by the memory
// subsystem directly, never via prompt substitution.
func resolveInputsPlaceholder(name string, rc RenderContext) (string, error) {
	if name == "inputs.memory_bulletin" || name == "inputs.memory_bulletin_citations" {
		return "", &direrr.StepPromptRenderError{RunID: rc.Run.RunID, StepID: rc.Step.ID, Identifier: name}
	}
	return resolveDottedPath(name, map[string]any{"inputs": rc.Run.Inputs})
}

func resolveStepsOutputPlaceholder(name string, rc RenderContext) (string, error) {
	bag := map[string]any{"steps": map[string]any{}}
	steps := bag["steps"].(map[string]any)
	for stepID, outputs := range rc.Run.StepOutputs {
		steps[stepID] = map[string]any{"outputs": outputs}
	}
	return resolveDottedPath(name, bag)
}

func stateBag(rc RenderContext) map[string]any {
	if rc.RuntimeExtra == nil {
		return map[string]any{}
	}
	return rc.RuntimeExtra
}

// resolveDottedPath walks a dot-separated path (e.g. "inputs.ticket.id")
// through nested maps, returning a string rendering of the leaf value.
func resolveDottedPath(fullPath string, root map[string]any) (string, error) {
	parts := strings.Split(fullPath, ".")
	var cur any = root
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", fmt.Errorf("placeholder %q: not an object at %q", fullPath, part)
		}
		val, ok := m[part]
		if !ok {
			return "", fmt.Errorf("placeholder %q: missing key %q", fullPath, part)
		}
		cur = val
	}
	return stringifyValue(cur), nil
}

func stringifyValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		rendered, err := marshalJSON(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return rendered
	}
}

func marshalJSON(v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func channelFromRun(run *Run) string {
	return run.SourceChannel
}
