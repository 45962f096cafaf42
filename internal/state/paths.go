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

// Package state defines the on-disk layout rooted at the orchestrator's
// state directory and bootstraps it idempotently.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dmuso/direclaw/pkg/direrr"
)

// StatePaths is the single source of truth for every path under the state
// root. All other components receive an already-bootstrapped StatePaths
// and fail closed if a required subtree is missing.
type StatePaths struct {
	Root string

	QueueIncoming   string
	QueueProcessing string
	QueueOutgoing   string

	WorkflowRuns string

	OrchestratorMessages    string
	OrchestratorSelect      string
	OrchestratorSelectLog   string
	OrchestratorSelectOuts  string
	OrchestratorPrivateRoot string

	LogsDir string

	ChannelsDir string

	AutomationJobsDir string

	TemplatesDir string

	SecretsDir string

	SupervisorState   string
	SupervisorLock    string
	SupervisorRequest string
}

// New builds a StatePaths rooted at root. It does not touch the
// filesystem; call Bootstrap to create the directory tree.
func New(root string) *StatePaths {
	orchPriv := filepath.Join(root, "orchestrator", "private")
	return &StatePaths{
		Root: root,

		QueueIncoming:   filepath.Join(root, "queue", "incoming"),
		QueueProcessing: filepath.Join(root, "queue", "processing"),
		QueueOutgoing:   filepath.Join(root, "queue", "outgoing"),

		WorkflowRuns: filepath.Join(root, "workflows", "runs"),

		OrchestratorMessages:    filepath.Join(root, "orchestrator", "messages"),
		OrchestratorSelect:      filepath.Join(root, "orchestrator", "select"),
		OrchestratorSelectLog:   filepath.Join(root, "orchestrator", "select", "logs"),
		OrchestratorSelectOuts:  filepath.Join(root, "orchestrator", "select", "results"),
		OrchestratorPrivateRoot: orchPriv,

		LogsDir: filepath.Join(root, "logs"),

		ChannelsDir: filepath.Join(root, "channels"),

		AutomationJobsDir: filepath.Join(root, "automation", "jobs"),

		TemplatesDir: filepath.Join(root, "templates"),

		SecretsDir: filepath.Join(root, "secrets"),

		SupervisorState:   filepath.Join(root, "supervisor.state"),
		SupervisorLock:    filepath.Join(root, "supervisor.lock"),
		SupervisorRequest: filepath.Join(root, "supervisor.request"),
	}
}

// Bootstrap idempotently creates every directory this StatePaths names.
// It never deletes anything; an existing directory is left untouched.
func (p *StatePaths) Bootstrap() error {
	dirs := []string{
		p.QueueIncoming,
		p.QueueProcessing,
		p.QueueOutgoing,
		p.WorkflowRuns,
		p.OrchestratorMessages,
		p.OrchestratorSelectLog,
		p.OrchestratorSelectOuts,
		p.OrchestratorPrivateRoot,
		p.LogsDir,
		p.ChannelsDir,
		p.AutomationJobsDir,
		p.TemplatesDir,
	}
	// SecretsDir is deliberately not created here: internal/secrets.Sync
	// creates it itself at 0700 since it holds plaintext secret values.
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &direrr.IOError{Path: dir, Op: "mkdir", Err: err}
		}
	}
	return nil
}

// RunDir returns the root directory for a workflow run.
func (p *StatePaths) RunDir(runID string) string {
	return filepath.Join(p.WorkflowRuns, runID)
}

// RunFile returns the path of a run's top-level metadata file, a sibling
// of RunDir rather than a child of it.
func (p *StatePaths) RunFile(runID string) string {
	return filepath.Join(p.WorkflowRuns, runID+".json")
}

// ProgressPath returns the path of a run's progress snapshot.
func (p *StatePaths) ProgressPath(runID string) string {
	return filepath.Join(p.RunDir(runID), "progress.json")
}

// EngineLogPath returns the path of a run's append-only transition log.
func (p *StatePaths) EngineLogPath(runID string) string {
	return filepath.Join(p.RunDir(runID), "engine.log")
}

// StepDir returns the root directory for a step within a run.
func (p *StatePaths) StepDir(runID, stepID string) string {
	return filepath.Join(p.RunDir(runID), "steps", stepID)
}

// AttemptDir returns the directory for a single attempt of a step.
func (p *StatePaths) AttemptDir(runID, stepID string, attempt int) string {
	return filepath.Join(p.StepDir(runID, stepID), "attempts", strconv.Itoa(attempt))
}

// AttemptOutputsDir returns the outputs root an attempt's declared output
// paths must canonicalize under.
func (p *StatePaths) AttemptOutputsDir(runID, stepID string, attempt int) string {
	return filepath.Join(p.AttemptDir(runID, stepID, attempt), "outputs")
}

// RunWorkspaceDir returns the private workspace for a run-scoped workspace
// mode.
func (p *StatePaths) RunWorkspaceDir(runID string) string {
	return filepath.Join(p.RunDir(runID), "workspace")
}

// AgentWorkspaceDir returns the private workspace for an agent-scoped
// workspace mode, nested under the orchestrator's private root.
func (p *StatePaths) AgentWorkspaceDir(agentID string) string {
	return filepath.Join(p.OrchestratorPrivateRoot, "agents", agentID)
}

// LogPath returns the path of a named append-only log file (runtime,
// engine, security, memory).
func (p *StatePaths) LogPath(name string) string {
	return filepath.Join(p.LogsDir, name+".log")
}

// JobPath returns the path of a scheduled job's persisted state.
func (p *StatePaths) JobPath(jobID string) string {
	return filepath.Join(p.AutomationJobsDir, jobID+".json")
}

// RequireBootstrapped verifies that every required subtree already exists,
// failing closed instead of silently creating it. Components other than
// the supervisor's own bootstrap call this on startup.
func (p *StatePaths) RequireBootstrapped() error {
	required := []string{
		p.QueueIncoming,
		p.QueueProcessing,
		p.QueueOutgoing,
		p.WorkflowRuns,
		p.LogsDir,
	}
	for _, dir := range required {
		info, err := os.Stat(dir)
		if err != nil {
			return &direrr.ConfigError{
				Key:    dir,
				Reason: fmt.Sprintf("required state subtree missing: %v", err),
			}
		}
		if !info.IsDir() {
			return &direrr.ConfigError{Key: dir, Reason: "expected a directory"}
		}
	}
	return nil
}
