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

package config

import (
	"github.com/dmuso/direclaw/internal/dispatch"
	"github.com/dmuso/direclaw/internal/provider"
)

// DispatchSource adapts a *Config to internal/dispatch's ConfigSource,
// kept as a separate wrapper rather than methods directly on *Config
// since Config.Orchestrator already returns the richer internal
// Orchestrator type other callers (the CLI's config mutation commands)
// need untouched.
type DispatchSource struct {
	Config *Config
}

var _ dispatch.ConfigSource = DispatchSource{}

// Orchestrator narrows a configured orchestrator to the fields the
// dispatcher needs plus an agent resolver bound to that orchestrator's
// own agents.
func (s DispatchSource) Orchestrator(id string) (dispatch.OrchestratorConfig, error) {
	orch, err := s.Config.Orchestrator(id)
	if err != nil {
		return dispatch.OrchestratorConfig{}, err
	}
	return dispatch.OrchestratorConfig{
		ID:                     orch.ID,
		SelectorAgentID:        orch.SelectorAgentID,
		SelectionMaxRetries:    orch.SelectionMaxRetries,
		SelectorTimeoutSeconds: orch.SelectorTimeoutSeconds,
		DefaultWorkflowID:      orch.DefaultWorkflowID,
		Defaults:               orch.ToEngineDefaults(),
		Agents:                 provider.AgentResolver(AgentResolverFor(orch)),
	}, nil
}

// ChannelProfileOrchestrator resolves the orchestrator id a configured
// channel profile routes to.
func (s DispatchSource) ChannelProfileOrchestrator(channelProfileID string) (string, bool) {
	profile, ok := s.Config.ChannelProfiles[channelProfileID]
	if !ok {
		return "", false
	}
	return profile.OrchestratorID, true
}

// WorkflowExists satisfies dispatch.ConfigSource by delegating to the
// same check the selector loop uses.
func (s DispatchSource) WorkflowExists(orchestratorID, workflowID string) bool {
	return s.Config.WorkflowExists(orchestratorID, workflowID)
}
