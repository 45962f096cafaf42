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

// Package selector implements the selector loop (spec.md §4.5): it
// invokes the orchestrator's selector agent, parses the structured
// result envelope, retries on failure up to a budget, and falls back
// deterministically to the orchestrator's default workflow.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	dlog "github.com/dmuso/direclaw/internal/log"
	"github.com/dmuso/direclaw/internal/queue"
	"github.com/dmuso/direclaw/internal/state"
	"github.com/dmuso/direclaw/pkg/direrr"
	"github.com/dmuso/direclaw/pkg/workflow"
)

// retryBackoff bounds how often a failing selector agent can be
// re-invoked, so a flapping provider binary cannot busy-loop through
// its retry budget.
const retryBackoff = 2 * time.Second

// Orchestrator is the narrow view of orchestrator config the selector
// loop needs. internal/config supplies the production implementation.
type Orchestrator struct {
	ID                     string
	SelectorAgentID        string
	SelectionMaxRetries    int
	SelectorTimeoutSeconds int
	DefaultWorkflowID      string
}

// WorkflowExistenceChecker reports whether a workflow id is known to the
// orchestrator, used to validate a selector's chosen workflow.
type WorkflowExistenceChecker interface {
	WorkflowExists(orchestratorID, workflowID string) bool
}

// Envelope is the structured JSON object the selector agent writes to
// its result path (spec.md §6 "Workflow result envelope", selector
// case).
type Envelope struct {
	SelectorID       string        `json:"selectorId"`
	Status           string        `json:"status"`
	Action           string        `json:"action"`
	SelectedWorkflow string        `json:"selectedWorkflow,omitempty"`
	Function         *FunctionCall `json:"function,omitempty"`
}

// FunctionCall is the payload of a command_invoke selector action.
type FunctionCall struct {
	ID   string   `json:"id"`
	Args []string `json:"args,omitempty"`
}

const (
	StatusSelected = "selected"
	StatusDeclined = "declined"

	ActionWorkflowStart = "workflow_start"
	ActionCommandInvoke = "command_invoke"
	ActionNoop          = "noop"
)

// Decision is the outcome of Select: either start a workflow, invoke a
// command, or (Fallback=true) the deterministic default-workflow path.
type Decision struct {
	WorkflowID   string
	Inputs       map[string]any
	Function     *FunctionCall
	Fallback     bool
	SelectorID   string
	FellBackFrom error
}

// invocationLog mirrors the JSON object persisted per selector attempt
// (spec.md §4.5: "status∈{succeeded,failed}, exit code, timed_out flag,
// and error reason").
type invocationLog struct {
	SelectorID string `json:"selectorId"`
	Attempt    int    `json:"attempt"`
	Status     string `json:"status"`
	ExitCode   int    `json:"exitCode"`
	TimedOut   bool   `json:"timedOut"`
	Error      string `json:"error,omitempty"`
}

// Loop runs the selector algorithm against a bootstrapped state root.
type Loop struct {
	paths   *state.StatePaths
	runner  workflow.ProviderRunner
	checks  WorkflowExistenceChecker
	logger  *slog.Logger
	limiter *rate.Limiter
}

// New builds a Loop. logger should write to logs/runtime.log.
func New(paths *state.StatePaths, runner workflow.ProviderRunner, checks WorkflowExistenceChecker, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		paths:   paths,
		runner:  runner,
		checks:  checks,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(retryBackoff), 1),
	}
}

// withRetryBackoff overrides the between-attempt backoff, used by tests
// that exercise several retries without waiting in real time.
func (l *Loop) withRetryBackoff(d time.Duration) *Loop {
	l.limiter = rate.NewLimiter(rate.Every(d), 1)
	return l
}

// Select runs the selector loop for msg against orch, returning a
// Decision. It never returns an error for an ordinary selector failure;
// those are retried internally and ultimately resolved by falling back
// to the default workflow, matching spec.md §4.5 and §7's recovery
// policy for SelectorValidation/SelectorJson. A non-nil error indicates
// a condition outside that policy (e.g. the orchestrator has no usable
// default workflow configured).
func (l *Loop) Select(ctx context.Context, orch Orchestrator, msg queue.IncomingMessage) (*Decision, error) {
	selectorID := uuid.New().String()
	maxRetries := orch.SelectionMaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			if err := l.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}
		decision, err := l.attempt(ctx, orch, msg, selectorID, attempt)
		if err == nil {
			return decision, nil
		}
		lastErr = err
		l.logger.Warn("selector attempt failed",
			dlog.String(dlog.SelectorIDKey, selectorID),
			dlog.Int("attempt", attempt),
			dlog.Error(err))
	}

	if orch.DefaultWorkflowID == "" {
		return nil, &direrr.ConfigError{Key: "default_workflow", Reason: "no default workflow configured", Cause: lastErr}
	}
	l.logger.Info("selector exhausted retries, falling back to default workflow",
		dlog.String(dlog.SelectorIDKey, selectorID),
		dlog.String(dlog.WorkflowKey, orch.DefaultWorkflowID))
	return &Decision{
		WorkflowID:   orch.DefaultWorkflowID,
		Inputs:       map[string]any{"user_message": msg.Message},
		Fallback:     true,
		SelectorID:   selectorID,
		FellBackFrom: lastErr,
	}, nil
}

func (l *Loop) attempt(ctx context.Context, orch Orchestrator, msg queue.IncomingMessage, selectorID string, attempt int) (*Decision, error) {
	resultPath := filepath.Join(l.paths.OrchestratorSelectOuts, selectorID+".json")
	logPath := filepath.Join(l.paths.OrchestratorSelectLog, fmt.Sprintf("%s_attempt_%d.invocation.json", selectorID, attempt))

	requestJSON, err := json.Marshal(msg)
	if err != nil {
		return nil, &direrr.ParseError{Path: "selector.request_json", Err: err}
	}

	prompt := renderSelectorPrompt(selectorPromptContext{
		RequestJSON:    string(requestJSON),
		ResultPath:     resultPath,
		OrchestratorID: orch.ID,
		AgentID:        orch.SelectorAgentID,
		Attempt:        attempt,
	})

	if err := os.MkdirAll(l.paths.OrchestratorSelectLog, 0o755); err != nil {
		return nil, &direrr.IOError{Path: l.paths.OrchestratorSelectLog, Op: "mkdir", Err: err}
	}
	if err := os.MkdirAll(l.paths.OrchestratorSelectOuts, 0o755); err != nil {
		return nil, &direrr.IOError{Path: l.paths.OrchestratorSelectOuts, Op: "mkdir", Err: err}
	}

	promptPath := filepath.Join(l.paths.OrchestratorSelectLog, fmt.Sprintf("%s_attempt_%d.prompt.md", selectorID, attempt))
	if err := os.WriteFile(promptPath, []byte(prompt), 0o644); err != nil {
		return nil, &direrr.IOError{Path: promptPath, Op: "write", Err: err}
	}

	deadline := time.Duration(orch.SelectorTimeoutSeconds) * time.Second
	if deadline <= 0 {
		deadline = 30 * time.Second
	}

	inv, invokeErr := l.runner.Invoke(ctx, orch.SelectorAgentID, promptPath, "", resultPath, deadline)

	ilog := invocationLog{SelectorID: selectorID, Attempt: attempt}
	if invokeErr != nil {
		ilog.Status = "failed"
		ilog.Error = invokeErr.Error()
		if inv != nil {
			ilog.ExitCode = inv.ExitCode
			ilog.TimedOut = inv.TimedOut
		}
		l.writeInvocationLog(logPath, ilog)
		return nil, &direrr.StepExecutionError{RunID: "", StepID: "selector", Reason: "provider invocation failed", Err: invokeErr}
	}

	raw, readErr := os.ReadFile(resultPath)
	if readErr != nil {
		ilog.Status = "failed"
		ilog.Error = "result file not written"
		l.writeInvocationLog(logPath, ilog)
		return nil, &direrr.SelectorJSONError{Err: readErr}
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		ilog.Status = "failed"
		ilog.Error = "malformed json"
		l.writeInvocationLog(logPath, ilog)
		return nil, &direrr.SelectorJSONError{RawText: string(raw), Err: err}
	}

	if err := l.validateEnvelope(orch, env); err != nil {
		ilog.Status = "failed"
		ilog.Error = err.Error()
		l.writeInvocationLog(logPath, ilog)
		return nil, err
	}

	ilog.Status = "succeeded"
	l.writeInvocationLog(logPath, ilog)

	switch env.Action {
	case ActionWorkflowStart:
		return &Decision{
			WorkflowID: env.SelectedWorkflow,
			Inputs:     map[string]any{"user_message": msg.Message},
			SelectorID: selectorID,
		}, nil
	case ActionCommandInvoke:
		return &Decision{Function: env.Function, SelectorID: selectorID}, nil
	default: // ActionNoop
		return &Decision{SelectorID: selectorID}, nil
	}
}

func (l *Loop) validateEnvelope(orch Orchestrator, env Envelope) error {
	if env.SelectorID == "" {
		return &direrr.SelectorValidationError{Field: "selectorId", Reason: "missing"}
	}
	if env.Status != StatusSelected && env.Status != StatusDeclined {
		return &direrr.SelectorValidationError{Field: "status", Reason: "must be selected or declined"}
	}
	if env.Status == StatusDeclined {
		return &direrr.SelectorValidationError{Field: "status", Reason: "selector declined"}
	}
	switch env.Action {
	case ActionWorkflowStart:
		if env.SelectedWorkflow == "" {
			return &direrr.SelectorValidationError{Field: "selectedWorkflow", Reason: "missing for workflow_start"}
		}
		if l.checks != nil && !l.checks.WorkflowExists(orch.ID, env.SelectedWorkflow) {
			return &direrr.SelectorValidationError{Field: "selectedWorkflow", Reason: fmt.Sprintf("unknown workflow %q", env.SelectedWorkflow)}
		}
	case ActionCommandInvoke:
		if env.Function == nil || env.Function.ID == "" {
			return &direrr.SelectorValidationError{Field: "function", Reason: "missing for command_invoke"}
		}
	case ActionNoop:
		// no further shape requirements
	default:
		return &direrr.SelectorValidationError{Field: "action", Reason: "unrecognized action"}
	}
	return nil
}

func (l *Loop) writeInvocationLog(path string, ilog invocationLog) {
	body, err := json.MarshalIndent(ilog, "", "  ")
	if err != nil {
		l.logger.Error("failed to marshal selector invocation log", dlog.Error(err))
		return
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		l.logger.Error("failed to write selector invocation log", dlog.String("path", path), dlog.Error(err))
	}
}
