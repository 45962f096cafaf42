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

// Package workflow implements the workflow engine: the run state machine,
// step execution contract, prompt rendering, output persistence, retry
// and timeout accounting, and the run store.
package workflow

import "time"

// StepKind names the two step shapes the engine understands.
type StepKind string

const (
	StepAgentTask   StepKind = "agent_task"
	StepAgentReview StepKind = "agent_review"
)

// WorkspaceMode names where a step's workspace root lives.
type WorkspaceMode string

const (
	WorkspaceOrchestrator WorkspaceMode = "orchestrator_workspace"
	WorkspaceRun          WorkspaceMode = "run_workspace"
	WorkspaceAgent        WorkspaceMode = "agent_workspace"
)

// RunState is a workflow run's position in the state machine (spec.md
// §4.4).
type RunState string

const (
	RunPending         RunState = "pending"
	RunRunning         RunState = "running"
	RunAwaitingReview  RunState = "awaiting_review"
	RunPaused          RunState = "paused"
	RunSucceeded       RunState = "succeeded"
	RunFailed          RunState = "failed"
	RunCanceled        RunState = "canceled"
)

// IsTerminal reports whether s is a state a run can never leave.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunSucceeded, RunFailed, RunCanceled:
		return true
	default:
		return false
	}
}

// Limits bounds a workflow or a single step's retries/timeouts.
type Limits struct {
	MaxTotalIterations int `yaml:"max_total_iterations,omitempty" json:"max_total_iterations,omitempty"`
	RunTimeoutSeconds  int `yaml:"run_timeout_seconds,omitempty" json:"run_timeout_seconds,omitempty"`
	StepTimeoutSeconds int `yaml:"step_timeout_seconds,omitempty" json:"step_timeout_seconds,omitempty"`
	MaxRetries         int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
}

// Step is one node in a workflow's step graph.
type Step struct {
	ID            string            `yaml:"id" json:"id"`
	Type          StepKind          `yaml:"type" json:"type"`
	Agent         string            `yaml:"agent" json:"agent"`
	Prompt        string            `yaml:"prompt" json:"prompt"`
	WorkspaceMode WorkspaceMode     `yaml:"workspace_mode" json:"workspace_mode"`
	Next          string            `yaml:"next,omitempty" json:"next,omitempty"`
	OnApprove     string            `yaml:"on_approve,omitempty" json:"on_approve,omitempty"`
	OnReject      string            `yaml:"on_reject,omitempty" json:"on_reject,omitempty"`
	Outputs       []string          `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	OutputFiles   map[string]string `yaml:"output_files,omitempty" json:"output_files,omitempty"`
	Limits        Limits            `yaml:"limits,omitempty" json:"limits,omitempty"`
}

// Definition is a static, on-disk workflow configuration (spec.md §3).
type Definition struct {
	ID      string   `yaml:"id" json:"id"`
	Version string   `yaml:"version" json:"version"`
	Inputs  []string `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Steps   []Step   `yaml:"steps" json:"steps"`
	Limits  Limits   `yaml:"limits,omitempty" json:"limits,omitempty"`
}

// StepByID returns the step with the given id, or false if none exists.
func (d *Definition) StepByID(id string) (Step, bool) {
	for _, s := range d.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// FirstStepID returns the id of the first declared step.
func (d *Definition) FirstStepID() (string, bool) {
	if len(d.Steps) == 0 {
		return "", false
	}
	return d.Steps[0].ID, true
}

// Run is a single execution of a Definition (spec.md §3 "Workflow run").
type Run struct {
	RunID          string                    `json:"runId"`
	OrchestratorID string                    `json:"orchestratorId"`
	WorkflowID     string                    `json:"workflowId"`
	WorkflowVersion string                   `json:"workflowVersion"`
	Inputs         map[string]any            `json:"inputs"`
	State          RunState                  `json:"state"`
	CurrentStepID  string                    `json:"currentStepId"`
	Attempt        int                       `json:"attempt"`
	IterationCount int                       `json:"iterationCount"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
	LastTransitionReason string             `json:"lastTransitionReason,omitempty"`

	SourceMessageID          string `json:"sourceMessageId,omitempty"`
	SourceChannel            string `json:"sourceChannel,omitempty"`
	SourceChannelProfileID   string `json:"sourceChannelProfileId,omitempty"`
	SourceConversationID     string `json:"sourceConversationId,omitempty"`
	SourceSenderID           string `json:"sourceSenderId,omitempty"`

	StepOutputs map[string]map[string]any `json:"stepOutputs,omitempty"`
}

// Progress is a lightweight, frequently-rewritten snapshot of run status,
// distinct from the full Run record so status queries don't need to parse
// the whole history.
type Progress struct {
	RunID         string    `json:"runId"`
	State         RunState  `json:"state"`
	CurrentStepID string    `json:"currentStepId"`
	Attempt       int       `json:"attempt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Message       string    `json:"message,omitempty"`
}

// TaskEnvelope is the result an agent_task step's provider must write.
type TaskEnvelope struct {
	Status   string         `json:"status"`
	Summary  string         `json:"summary,omitempty"`
	Artifact string         `json:"artifact,omitempty"`
	Outputs  map[string]any `json:"-"`
}

const (
	TaskStatusComplete = "complete"
	TaskStatusBlocked  = "blocked"
	TaskStatusFailed   = "failed"
)

// ReviewEnvelope is the result an agent_review step's provider must write.
type ReviewEnvelope struct {
	Decision string `json:"decision"`
	Summary  string `json:"summary"`
	Feedback string `json:"feedback"`
}

const (
	ReviewApprove = "approve"
	ReviewReject  = "reject"
)

// Invocation captures what a provider subprocess produced for one attempt.
type Invocation struct {
	Agent      string        `json:"agent"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	ExitCode   int           `json:"exitCode"`
	TimedOut   bool          `json:"timedOut"`
	DurationNs int64         `json:"durationNs"`
	Deadline   time.Duration `json:"deadline"`
	Error      string        `json:"error,omitempty"`
}
