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
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleRenderContext() RenderContext {
	return RenderContext{
		Run: &Run{
			RunID:                  "run-1",
			Attempt:                2,
			SourceChannel:          "slack",
			SourceChannelProfileID: "profile-1",
			SourceConversationID:   "conv-1",
			SourceSenderID:         "sender-1",
			Inputs: map[string]any{
				"ticket": map[string]any{"id": "T-42"},
			},
			StepOutputs: map[string]map[string]any{
				"collect": {"summary": "done"},
			},
		},
		Step:             Step{ID: "review", Outputs: []string{"summary"}},
		RunWorkspace:     "/state/workflows/runs/run-1/workspace",
		OutputPaths:      map[string]string{"report": "/state/.../outputs/report.md"},
		ChannelProfileID: "profile-1",
		ConversationID:   "conv-1",
		SenderID:         "sender-1",
		SelectorID:       "selector-1",
	}
}

func TestRenderStepTemplateBasicFields(t *testing.T) {
	rc := sampleRenderContext()

	rendered, err := RenderStepTemplate("run={{workflow.run_id}} step={{workflow.step_id}} attempt={{workflow.attempt}}", rc)
	require.NoError(t, err)
	require.Equal(t, "run=run-1 step=review attempt=2", rendered)
}

func TestRenderStepTemplateWorkspaceAndPaths(t *testing.T) {
	rc := sampleRenderContext()

	rendered, err := RenderStepTemplate("workspace={{ workflow.run_workspace }}", rc)
	require.NoError(t, err)
	require.Equal(t, "workspace=/state/workflows/runs/run-1/workspace", rendered)

	rendered, err = RenderStepTemplate("report={{workflow.output_paths.report}}", rc)
	require.NoError(t, err)
	require.Equal(t, "report=/state/.../outputs/report.md", rendered)
}

func TestRenderStepTemplateUnknownOutputPathFails(t *testing.T) {
	rc := sampleRenderContext()
	_, err := RenderStepTemplate("{{workflow.output_paths.missing}}", rc)
	require.Error(t, err)
}

func TestRenderStepTemplateChannelContext(t *testing.T) {
	rc := sampleRenderContext()

	rendered, err := RenderStepTemplate(
		"channel={{workflow.channel}} profile={{workflow.channel_profile_id}} conv={{workflow.conversation_id}} sender={{workflow.sender_id}} selector={{workflow.selector_id}}",
		rc)
	require.NoError(t, err)
	require.Equal(t, "channel=slack profile=profile-1 conv=conv-1 sender=sender-1 selector=selector-1", rendered)
}

func TestRenderStepTemplateInputsDottedPath(t *testing.T) {
	rc := sampleRenderContext()

	rendered, err := RenderStepTemplate("ticket={{inputs.ticket.id}}", rc)
	require.NoError(t, err)
	require.Equal(t, "ticket=T-42", rendered)
}

func TestRenderStepTemplateRejectsMemoryBulletinPlaceholders(t *testing.T) {
	rc := sampleRenderContext()

	_, err := RenderStepTemplate("{{inputs.memory_bulletin}}", rc)
	require.Error(t, err)

	_, err = RenderStepTemplate("{{inputs.memory_bulletin_citations}}", rc)
	require.Error(t, err)
}

func TestRenderStepTemplateStepsOutputs(t *testing.T) {
	rc := sampleRenderContext()

	rendered, err := RenderStepTemplate("summary={{steps.collect.outputs.summary}}", rc)
	require.NoError(t, err)
	require.Equal(t, "summary=done", rendered)
}

func TestRenderStepTemplateUnrecognizedPlaceholderFails(t *testing.T) {
	rc := sampleRenderContext()
	_, err := RenderStepTemplate("{{totally.unknown}}", rc)
	require.Error(t, err)
}

func TestRenderStepTemplateMissingDottedKeyFails(t *testing.T) {
	rc := sampleRenderContext()
	_, err := RenderStepTemplate("{{inputs.ticket.missing}}", rc)
	require.Error(t, err)
}

func TestRenderStepTemplateNoPlaceholdersPassesThrough(t *testing.T) {
	rc := sampleRenderContext()
	rendered, err := RenderStepTemplate("plain text, no placeholders here", rc)
	require.NoError(t, err)
	require.Equal(t, "plain text, no placeholders here", rendered)
}
