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

// Package config loads and mutates the orchestrator/workflow/channel-profile
// configuration file that drives the rest of the runtime.
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmuso/direclaw/pkg/direrr"
)

// ErrUnknownOrchestrator is returned when a config lookup names an
// orchestrator id that is not configured.
var ErrUnknownOrchestrator = errors.New("config: unknown orchestrator")

// ErrUnknownAgent is returned when a config lookup names an agent id that
// is not configured for an orchestrator.
var ErrUnknownAgent = errors.New("config: unknown agent")

// Config is the full on-disk configuration: every orchestrator, its
// agents, and the channel profiles messages arrive on.
type Config struct {
	Version int `yaml:"version"`

	Orchestrators   map[string]Orchestrator    `yaml:"orchestrators"`
	ChannelProfiles map[string]ChannelProfile  `yaml:"channel_profiles"`
	WorkflowsDir    string                     `yaml:"workflows_dir,omitempty"`

	// Secrets maps a secret file name (written under <state-root>/secrets/)
	// to a reference, e.g. "keychain:anthropic-api-key". Only keychain:
	// references are resolved by `direclaw auth sync`; other schemes are
	// reserved for future resolvers.
	Secrets map[string]string `yaml:"secrets,omitempty"`
}

// Orchestrator is one configured orchestrator: its selector settings,
// the agents it may dispatch to, and its default fallback workflow.
type Orchestrator struct {
	ID                     string           `yaml:"id"`
	SelectorAgentID        string           `yaml:"selector_agent_id"`
	SelectionMaxRetries    int              `yaml:"selection_max_retries"`
	SelectorTimeoutSeconds int              `yaml:"selector_timeout_seconds"`
	DefaultWorkflowID      string           `yaml:"default_workflow_id"`
	Agents                 map[string]Agent `yaml:"agents"`
	WorkflowIDs            []string         `yaml:"workflow_ids,omitempty"`

	// WorkflowOrchestration carries the orchestrator-wide fallback limits
	// a workflow or step consults when it leaves one unset (spec.md §4.4:
	// "orchestrator.workflow_orchestration.default_step_max_retries").
	WorkflowOrchestration WorkflowOrchestrationDefaults `yaml:"workflow_orchestration,omitempty"`
}

// WorkflowOrchestrationDefaults is the orchestrator-wide fallback limit
// set the engine consults (spec.md §4.4 "Retry and limits").
type WorkflowOrchestrationDefaults struct {
	DefaultStepMaxRetries     int `yaml:"default_step_max_retries,omitempty"`
	DefaultRunTimeoutSeconds  int `yaml:"default_run_timeout_seconds,omitempty"`
	DefaultStepTimeoutSeconds int `yaml:"default_step_timeout_seconds,omitempty"`
	DefaultMaxTotalIterations int `yaml:"default_max_total_iterations,omitempty"`
}

// Agent is one orchestrator-scoped agent: which provider binary it
// invokes and which model argument (if any) it passes.
type Agent struct {
	ID       string `yaml:"id"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model,omitempty"`
}

// ChannelProfile is a configured inbound/outbound channel endpoint.
type ChannelProfile struct {
	ID             string `yaml:"id"`
	Channel        string `yaml:"channel"`
	OrchestratorID string `yaml:"orchestrator_id"`
}

// DefaultConfig returns an empty, valid configuration.
func DefaultConfig() *Config {
	return &Config{
		Version:         1,
		Orchestrators:   map[string]Orchestrator{},
		ChannelProfiles: map[string]ChannelProfile{},
	}
}

// Load reads and parses the configuration file at path. A missing file
// is not an error: it returns DefaultConfig().
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, &direrr.IOError{Path: path, Op: "read", Err: err}
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, &direrr.ParseError{Path: path, Err: err}
	}
	if cfg.Orchestrators == nil {
		cfg.Orchestrators = map[string]Orchestrator{}
	}
	if cfg.ChannelProfiles == nil {
		cfg.ChannelProfiles = map[string]ChannelProfile{}
	}
	return &cfg, nil
}

// Orchestrator looks up a configured orchestrator by id.
func (c *Config) Orchestrator(id string) (Orchestrator, error) {
	orch, ok := c.Orchestrators[id]
	if !ok {
		return Orchestrator{}, &direrr.ConfigError{Key: id, Reason: ErrUnknownOrchestrator.Error()}
	}
	return orch, nil
}

// ResolveAgent looks up an agent within orchestratorID, satisfying
// internal/provider's AgentResolver contract for that one orchestrator.
func (o Orchestrator) ResolveAgent(agentID string) (Agent, error) {
	agent, ok := o.Agents[agentID]
	if !ok {
		return Agent{}, &direrr.ConfigError{Key: agentID, Reason: ErrUnknownAgent.Error()}
	}
	return agent, nil
}

// HasWorkflow reports whether workflowID is registered to this
// orchestrator, satisfying internal/selector's WorkflowExistenceChecker.
func (o Orchestrator) HasWorkflow(workflowID string) bool {
	for _, id := range o.WorkflowIDs {
		if id == workflowID {
			return true
		}
	}
	return false
}
