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

package triggers

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmuso/direclaw/internal/commands/shared"
	"github.com/dmuso/direclaw/internal/scheduler"
)

// newAddCommand builds `direclaw workflow triggers schedule add`.
func newAddCommand() *cobra.Command {
	var (
		jobID          string
		orchestratorID string
		kind           string
		runAt          string
		everySeconds   int64
		cronExpr       string
		timezone       string
		target         string
		workflowID     string
		functionID     string
		args           []string
		inputPairs     []string
		allowOverlap   bool
		misfire        string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a scheduled job",
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			sched, err := buildSchedule(kind, runAt, everySeconds, cronExpr, timezone)
			if err != nil {
				return shared.NewExitError(shared.ExitInvalidInput, "invalid schedule", err)
			}
			inputs, err := parseInputPairs(inputPairs)
			if err != nil {
				return shared.NewExitError(shared.ExitInvalidInput, "invalid --input", err)
			}
			tgt, err := buildTarget(target, workflowID, functionID, args, inputs)
			if err != nil {
				return shared.NewExitError(shared.ExitInvalidInput, "invalid target", err)
			}
			if orchestratorID == "" {
				return shared.NewExitError(shared.ExitInvalidInput, "--orchestrator is required", nil)
			}

			job := &scheduler.Job{
				JobID:          jobID,
				OrchestratorID: orchestratorID,
				Schedule:       sched,
				Target:         tgt,
				AllowOverlap:   allowOverlap,
				MisfirePolicy:  scheduler.MisfirePolicy(misfire),
			}
			if err := openScheduler().CreateJob(job, time.Now().UTC()); err != nil {
				return shared.NewExitError(shared.ExitFailed, "failed to create job", err)
			}
			fmt.Printf("job created: %s (next run at %s)\n", job.JobID, job.NextRunAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "id", "", "Job id (default: generated)")
	cmd.Flags().StringVar(&orchestratorID, "orchestrator", "", "Owning orchestrator id (required)")
	cmd.Flags().StringVar(&kind, "kind", "once", "Schedule kind: once|interval|cron")
	cmd.Flags().StringVar(&runAt, "run-at", "", "RFC3339 timestamp for kind=once")
	cmd.Flags().Int64Var(&everySeconds, "every-seconds", 0, "Interval period in seconds for kind=interval")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression for kind=cron")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "IANA timezone for kind=cron")
	cmd.Flags().StringVar(&target, "target", "workflow_start", "Target kind: workflow_start|command_invoke")
	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Workflow id for target=workflow_start")
	cmd.Flags().StringVar(&functionID, "function-id", "", "Function id for target=command_invoke")
	cmd.Flags().StringArrayVar(&args, "arg", nil, "Argument for target=command_invoke; repeatable")
	cmd.Flags().StringArrayVar(&inputPairs, "input", nil, "Workflow input as key=value; repeatable")
	cmd.Flags().BoolVar(&allowOverlap, "allow-overlap", false, "Allow a new execution while one is still active")
	cmd.Flags().StringVar(&misfire, "misfire-policy", string(scheduler.MisfireFireOnceOnRecovery), "fire_once_on_recovery|skip_missed")
	return cmd
}

func buildSchedule(kind, runAt string, everySeconds int64, cronExpr, timezone string) (scheduler.Schedule, error) {
	switch scheduler.ScheduleKind(kind) {
	case scheduler.ScheduleOnce:
		if runAt == "" {
			return scheduler.Schedule{}, fmt.Errorf("--run-at is required for kind=once")
		}
		t, err := time.Parse(time.RFC3339, runAt)
		if err != nil {
			return scheduler.Schedule{}, fmt.Errorf("invalid --run-at: %w", err)
		}
		return scheduler.Schedule{Kind: scheduler.ScheduleOnce, RunAt: t}, nil
	case scheduler.ScheduleInterval:
		return scheduler.Schedule{Kind: scheduler.ScheduleInterval, EverySeconds: everySeconds}, nil
	case scheduler.ScheduleCron:
		if cronExpr == "" {
			return scheduler.Schedule{}, fmt.Errorf("--cron is required for kind=cron")
		}
		return scheduler.Schedule{Kind: scheduler.ScheduleCron, CronExpression: cronExpr, Timezone: timezone}, nil
	default:
		return scheduler.Schedule{}, fmt.Errorf("unknown schedule kind %q", kind)
	}
}

func buildTarget(kind, workflowID, functionID string, args []string, inputs map[string]any) (scheduler.Target, error) {
	switch scheduler.TargetKind(kind) {
	case scheduler.TargetWorkflowStart:
		if workflowID == "" {
			return scheduler.Target{}, fmt.Errorf("--workflow-id is required for target=workflow_start")
		}
		return scheduler.Target{Kind: scheduler.TargetWorkflowStart, WorkflowID: workflowID, Inputs: inputs}, nil
	case scheduler.TargetCommandInvoke:
		if functionID == "" {
			return scheduler.Target{}, fmt.Errorf("--function-id is required for target=command_invoke")
		}
		return scheduler.Target{Kind: scheduler.TargetCommandInvoke, FunctionID: functionID, Args: args}, nil
	default:
		return scheduler.Target{}, fmt.Errorf("unknown target kind %q", kind)
	}
}

func parseInputPairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	inputs := map[string]any{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		inputs[k] = v
	}
	return inputs, nil
}
