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

package selector

import (
	"fmt"
	"strconv"
	"strings"
)

// selectorPromptContext carries the recognized selector placeholder
// values (spec.md §6 "Selector prompts/contexts").
type selectorPromptContext struct {
	RequestJSON    string
	ResultPath     string
	OrchestratorID string
	AgentID        string
	Attempt        int
}

var selectorPlaceholders = map[string]func(selectorPromptContext) string{
	"selector.request_json":     func(c selectorPromptContext) string { return c.RequestJSON },
	"selector.result_path":      func(c selectorPromptContext) string { return c.ResultPath },
	"selector.orchestrator_id":  func(c selectorPromptContext) string { return c.OrchestratorID },
	"selector.agent_id":         func(c selectorPromptContext) string { return c.AgentID },
	"selector.attempt":          func(c selectorPromptContext) string { return strconv.Itoa(c.Attempt) },
}

// defaultSelectorPrompt is the built-in selector prompt template.
// renderSelectorPrompt renders it for every selector attempt; there is
// no per-orchestrator override.
const defaultSelectorPrompt = `You are the selector for orchestrator {{selector.orchestrator_id}}.

Given this incoming message, choose a workflow to run or decline.

{{selector.request_json}}

Write a single JSON object to {{selector.result_path}} with keys
selectorId, status (selected|declined), action
(workflow_start|command_invoke|noop), and either selectedWorkflow or
function{id,args}. This is attempt {{selector.attempt}}.
`

// renderSelectorPrompt substitutes every recognized selector placeholder
// in the default selector prompt template.
func renderSelectorPrompt(c selectorPromptContext) string {
	return RenderSelectorTemplate(defaultSelectorPrompt, c)
}

// RenderSelectorTemplate substitutes every recognized selector
// placeholder in text. Unknown placeholders are kept in the output (as
// "{{key}}", with surrounding whitespace trimmed) rather than rejected:
// the selector prompt is a fixed, built-in template, not an untrusted
// workflow definition, and no other component validates it.
func RenderSelectorTemplate(text string, c selectorPromptContext) string {
	var b strings.Builder
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], "{{")
		if start < 0 {
			b.WriteString(text[i:])
			break
		}
		start += i
		b.WriteString(text[i:start])
		end := strings.Index(text[start:], "}}")
		if end < 0 {
			b.WriteString(text[start:])
			break
		}
		end += start
		key := strings.TrimSpace(text[start+2 : end])
		if fn, ok := selectorPlaceholders[key]; ok {
			b.WriteString(fn(c))
		} else {
			b.WriteString(fmt.Sprintf("{{%s}}", key))
		}
		i = end + 2
	}
	return b.String()
}
