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
	"github.com/dmuso/direclaw/internal/provider"
	"github.com/dmuso/direclaw/internal/selector"
	"github.com/dmuso/direclaw/pkg/workflow"
)

// ToEngineDefaults narrows an Orchestrator's workflow_orchestration block
// to the workflow.Defaults the engine consults when a workflow or step
// leaves a limit unset.
func (o Orchestrator) ToEngineDefaults() workflow.Defaults {
	return workflow.Defaults{
		StepMaxRetries:     o.WorkflowOrchestration.DefaultStepMaxRetries,
		RunTimeoutSeconds:  o.WorkflowOrchestration.DefaultRunTimeoutSeconds,
		StepTimeoutSeconds: o.WorkflowOrchestration.DefaultStepTimeoutSeconds,
		MaxTotalIterations: o.WorkflowOrchestration.DefaultMaxTotalIterations,
	}
}

// ToSelectorOrchestrator narrows a configured Orchestrator to the fields
// internal/selector's loop needs.
func (o Orchestrator) ToSelectorOrchestrator() selector.Orchestrator {
	return selector.Orchestrator{
		ID:                     o.ID,
		SelectorAgentID:        o.SelectorAgentID,
		SelectionMaxRetries:    o.SelectionMaxRetries,
		SelectorTimeoutSeconds: o.SelectorTimeoutSeconds,
		DefaultWorkflowID:      o.DefaultWorkflowID,
	}
}

// WorkflowExists satisfies internal/selector's WorkflowExistenceChecker by
// consulting the named orchestrator's registered workflow ids.
func (c *Config) WorkflowExists(orchestratorID, workflowID string) bool {
	orch, ok := c.Orchestrators[orchestratorID]
	if !ok {
		return false
	}
	return orch.HasWorkflow(workflowID)
}

// agentResolver adapts one Orchestrator's agent map to
// internal/provider's AgentResolver contract.
type agentResolver struct {
	orch Orchestrator
}

// AgentResolverFor builds the provider.AgentResolver for one
// orchestrator's agents.
func AgentResolverFor(orch Orchestrator) provider.AgentResolver {
	return agentResolver{orch: orch}
}

func (r agentResolver) ResolveAgent(agentID string) (provider.AgentSpec, error) {
	agent, err := r.orch.ResolveAgent(agentID)
	if err != nil {
		return provider.AgentSpec{}, err
	}
	return provider.AgentSpec{ID: agent.ID, Provider: agent.Provider, Model: agent.Model}, nil
}
