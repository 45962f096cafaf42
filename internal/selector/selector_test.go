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
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmuso/direclaw/internal/queue"
	"github.com/dmuso/direclaw/internal/state"
	"github.com/dmuso/direclaw/pkg/workflow"
)

type stubRunner struct {
	writeResult func(outputPath string) error
	invokeErr   error
}

func (s stubRunner) Invoke(ctx context.Context, agent, promptPath, contextPath, outputPath string, deadline time.Duration) (*workflow.Invocation, error) {
	if s.invokeErr != nil {
		return &workflow.Invocation{Agent: agent, ExitCode: 1}, s.invokeErr
	}
	if s.writeResult != nil {
		if err := s.writeResult(outputPath); err != nil {
			return nil, err
		}
	}
	return &workflow.Invocation{Agent: agent, ExitCode: 0}, nil
}

type allowAllChecker struct{ allowed map[string]bool }

func (a allowAllChecker) WorkflowExists(orchestratorID, workflowID string) bool {
	return a.allowed[workflowID]
}

func newTestPaths(t *testing.T) *state.StatePaths {
	t.Helper()
	p := state.New(t.TempDir())
	require.NoError(t, p.Bootstrap())
	return p
}

func writeEnvelope(env Envelope) func(string) error {
	return func(path string) error {
		body, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return os.WriteFile(path, body, 0o644)
	}
}

func TestSelectHappyPath(t *testing.T) {
	paths := newTestPaths(t)
	runner := stubRunner{writeResult: writeEnvelope(Envelope{
		SelectorID:       "sel-msg-1",
		Status:           StatusSelected,
		Action:           ActionWorkflowStart,
		SelectedWorkflow: "triage",
	})}
	loop := New(paths, runner, allowAllChecker{allowed: map[string]bool{"triage": true}}, nil)

	msg := queue.IncomingMessage{MessageID: "msg-1", ConversationID: "thread-1", Message: "help", ChannelProfileID: "eng"}
	orch := Orchestrator{ID: "eng-orch", SelectorAgentID: "selector-agent", SelectionMaxRetries: 3, DefaultWorkflowID: "fallback"}

	decision, err := loop.Select(context.Background(), orch, msg)
	require.NoError(t, err)
	require.False(t, decision.Fallback)
	require.Equal(t, "triage", decision.WorkflowID)
	require.Equal(t, "help", decision.Inputs["user_message"])
}

func TestSelectFallsBackAfterRetriesExhausted(t *testing.T) {
	paths := newTestPaths(t)
	runner := stubRunner{writeResult: writeEnvelope(Envelope{
		SelectorID: "sel-msg-2",
		Status:     StatusSelected,
		Action:     ActionWorkflowStart,
		// SelectedWorkflow intentionally missing/unknown to force failure.
		SelectedWorkflow: "does-not-exist",
	})}
	loop := New(paths, runner, allowAllChecker{allowed: map[string]bool{}}, nil).withRetryBackoff(time.Millisecond)

	msg := queue.IncomingMessage{MessageID: "msg-2", Message: "hi"}
	orch := Orchestrator{ID: "eng-orch", SelectorAgentID: "selector-agent", SelectionMaxRetries: 2, DefaultWorkflowID: "fallback"}

	decision, err := loop.Select(context.Background(), orch, msg)
	require.NoError(t, err)
	require.True(t, decision.Fallback)
	require.Equal(t, "fallback", decision.WorkflowID)
	require.Equal(t, "hi", decision.Inputs["user_message"])
	require.Error(t, decision.FellBackFrom)
}

func TestSelectRetriesOnInvokeErrorThenSucceeds(t *testing.T) {
	paths := newTestPaths(t)
	attempts := 0
	runner := stubRunnerFunc(func(ctx context.Context, agent, promptPath, contextPath, outputPath string, deadline time.Duration) (*workflow.Invocation, error) {
		attempts++
		if attempts == 1 {
			return &workflow.Invocation{Agent: agent, ExitCode: 1}, assertErr{}
		}
		env := Envelope{SelectorID: "sel-msg-3", Status: StatusSelected, Action: ActionNoop}
		body, _ := json.Marshal(env)
		require.NoError(t, os.WriteFile(outputPath, body, 0o644))
		return &workflow.Invocation{Agent: agent, ExitCode: 0}, nil
	})
	loop := New(paths, runner, allowAllChecker{}, nil).withRetryBackoff(time.Millisecond)

	msg := queue.IncomingMessage{MessageID: "msg-3", Message: "hi"}
	orch := Orchestrator{ID: "eng-orch", SelectorAgentID: "selector-agent", SelectionMaxRetries: 3, DefaultWorkflowID: "fallback"}

	decision, err := loop.Select(context.Background(), orch, msg)
	require.NoError(t, err)
	require.False(t, decision.Fallback)
	require.Equal(t, 2, attempts)
}

type assertErr struct{}

func (assertErr) Error() string { return "invocation failed" }

type stubRunnerFunc func(ctx context.Context, agent, promptPath, contextPath, outputPath string, deadline time.Duration) (*workflow.Invocation, error)

func (f stubRunnerFunc) Invoke(ctx context.Context, agent, promptPath, contextPath, outputPath string, deadline time.Duration) (*workflow.Invocation, error) {
	return f(ctx, agent, promptPath, contextPath, outputPath, deadline)
}
