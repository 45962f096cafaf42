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

// Package dispatch wires the filesystem queue, the per-key scheduler,
// the selector loop, and the workflow engine into the single control
// flow spec.md §2 describes: claim -> select/resume -> execute -> reply.
// It is the "orchestrator dispatcher" named in spec.md §4.8's worker
// list, paired here with the "queue processor" worker that feeds it.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmuso/direclaw/internal/provider"
	"github.com/dmuso/direclaw/internal/queue"
	"github.com/dmuso/direclaw/internal/scheduler"
	"github.com/dmuso/direclaw/internal/selector"
	"github.com/dmuso/direclaw/internal/state"
	"github.com/dmuso/direclaw/pkg/direrr"
	"github.com/dmuso/direclaw/pkg/workflow"
)

// ConfigSource is the narrow view of internal/config the dispatcher
// needs, kept as an interface so tests can supply a fixture instead of
// a YAML-backed Config.
type ConfigSource interface {
	Orchestrator(id string) (OrchestratorConfig, error)
	ChannelProfileOrchestrator(channelProfileID string) (string, bool)
	WorkflowExists(orchestratorID, workflowID string) bool
}

// OrchestratorConfig is the subset of a configured orchestrator the
// dispatcher consults directly (the rest is narrowed further for the
// selector loop and the provider runner by their own adapters).
type OrchestratorConfig struct {
	ID                     string
	SelectorAgentID        string
	SelectionMaxRetries    int
	SelectorTimeoutSeconds int
	DefaultWorkflowID      string
	Defaults               workflow.Defaults
	Agents                 provider.AgentResolver
}

// Runtime owns the in-memory per-key scheduler and the components it
// feeds work to. Exactly one Runtime exists per running supervisor.
type Runtime struct {
	paths        *state.StatePaths
	cfg          ConfigSource
	workflowsDir string
	store        *workflow.Store
	queuePaths   queue.Paths
	log          *slog.Logger

	mu    sync.Mutex
	sched *queue.PerKeyScheduler[*queue.ClaimedMessage]
}

// NewRuntime builds a Runtime. paths must already be bootstrapped.
func NewRuntime(paths *state.StatePaths, cfg ConfigSource, workflowsDir string, log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{
		paths:        paths,
		cfg:          cfg,
		workflowsDir: workflowsDir,
		store:        workflow.NewStore(paths),
		queuePaths:   queue.PathsFromStateRoot(paths.Root),
		log:          log,
		sched:        queue.NewPerKeyScheduler[*queue.ClaimedMessage](),
	}
}

// ClaimBatch claims up to n messages from the incoming queue and
// enqueues each into the per-key scheduler under its derived ordering
// key (spec.md §4.3). It stops early once the incoming directory is
// drained.
func (rt *Runtime) ClaimBatch(n int) (int, error) {
	claimedCount := 0
	for i := 0; i < n; i++ {
		claimed, err := queue.ClaimOldest(rt.queuePaths)
		if err != nil {
			return claimedCount, err
		}
		if claimed == nil {
			break
		}
		key := queue.DeriveOrderingKey(claimed.Payload)
		rt.mu.Lock()
		rt.sched.Enqueue(key, claimed)
		rt.mu.Unlock()
		claimedCount++
	}
	return claimedCount, nil
}

// DispatchRunnable dequeues up to maxItems entries the scheduler judges
// runnable right now and processes each concurrently, returning one
// error per failed item (nil entries for successes). A process()
// failure that is not itself a queue-completion failure still leaves
// the originating message's processing-directory entry resolved per
// spec.md §8 scenario 6: a failed workflow run is completed with an
// explanatory reply, while a config, selector, or definition-load
// failure requeues the entry to incoming under a fresh name.
func (rt *Runtime) DispatchRunnable(ctx context.Context, maxItems int) []error {
	rt.mu.Lock()
	items := rt.sched.DequeueRunnable(maxItems)
	rt.mu.Unlock()
	if len(items) == 0 {
		return nil
	}

	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item queue.Scheduled[*queue.ClaimedMessage]) {
			defer wg.Done()
			defer func() {
				rt.mu.Lock()
				rt.sched.Complete(item.Key)
				rt.mu.Unlock()
			}()
			errs[i] = rt.process(ctx, item.Value)
		}(i, item)
	}
	wg.Wait()
	return errs
}

// Drain runs ClaimBatch/DispatchRunnable to exhaustion: claim everything
// currently in incoming, then dequeue and process runnable entries
// until the scheduler has nothing left pending or active. It is the
// synchronous entry point the tests use; the supervisor's queue-processor/dispatcher workers
// call the same two primitives from independent tick loops instead.
func (rt *Runtime) Drain(ctx context.Context) (processed int, errs []error) {
	if _, err := rt.ClaimBatch(1 << 20); err != nil {
		errs = append(errs, err)
	}
	for {
		rt.mu.Lock()
		pending := rt.sched.PendingLen()
		rt.mu.Unlock()
		if pending == 0 {
			break
		}
		batch := rt.DispatchRunnable(ctx, pending)
		processed += len(batch)
		for _, e := range batch {
			if e != nil {
				errs = append(errs, e)
			}
		}
	}
	return processed, errs
}

// process runs one claimed message through resolution, selection or
// resume, and workflow execution, then always completes or requeues
// the queue entry before returning.
func (rt *Runtime) process(ctx context.Context, claimed *queue.ClaimedMessage) error {
	msg := claimed.Payload

	rt.persistOrchestratorMessage(msg)

	if msg.WorkflowRunID != "" {
		return rt.processResume(ctx, claimed)
	}

	orchID, err := rt.resolveOrchestratorID(msg)
	if err != nil {
		if _, rqErr := queue.RequeueFailure(rt.queuePaths, claimed); rqErr != nil {
			return rqErr
		}
		return err
	}

	orch, err := rt.cfg.Orchestrator(orchID)
	if err != nil {
		if _, rqErr := queue.RequeueFailure(rt.queuePaths, claimed); rqErr != nil {
			return rqErr
		}
		return err
	}

	decision, selErr := rt.newSelectorLoop(orch).Select(ctx, selector.Orchestrator{
		ID:                     orch.ID,
		SelectorAgentID:        orch.SelectorAgentID,
		SelectionMaxRetries:    orch.SelectionMaxRetries,
		SelectorTimeoutSeconds: orch.SelectorTimeoutSeconds,
		DefaultWorkflowID:      orch.DefaultWorkflowID,
	}, msg)
	if selErr != nil {
		if _, rqErr := queue.RequeueFailure(rt.queuePaths, claimed); rqErr != nil {
			return rqErr
		}
		return selErr
	}

	if decision.Function != nil {
		out := rt.ackOutbound(claimed, fmt.Sprintf("command `%s` is not handled by this runtime", decision.Function.ID))
		_, err := queue.CompleteSuccess(rt.queuePaths, claimed, out)
		return err
	}
	if decision.WorkflowID == "" {
		out := rt.ackOutbound(claimed, "no action taken")
		_, err := queue.CompleteSuccess(rt.queuePaths, claimed, out)
		return err
	}

	def, err := workflow.LoadDefinition(filepath.Join(rt.workflowsDir, decision.WorkflowID+".yaml"))
	if err != nil {
		if _, rqErr := queue.RequeueFailure(rt.queuePaths, claimed); rqErr != nil {
			return rqErr
		}
		return err
	}

	engine := workflow.NewEngine(rt.store, rt.paths, rt.newProviderRunner(orch), orch.Defaults, rt.log)
	run, runErr := engine.Start(ctx, def, workflow.StartInput{
		RunID:                  newRunID(orch.ID, def.ID),
		OrchestratorID:         orch.ID,
		Inputs:                 decision.Inputs,
		SourceMessageID:        msg.MessageID,
		SourceChannel:          msg.Channel,
		SourceChannelProfileID: msg.ChannelProfileID,
		SourceConversationID:   msg.ConversationID,
		SourceSenderID:         msg.SenderID,
	})
	out := rt.runOutbound(claimed, run, runErr)
	if _, err := queue.CompleteSuccess(rt.queuePaths, claimed, out); err != nil {
		return err
	}
	return runErr
}

// processResume handles an incoming message that names an existing
// workflow_run_id: a read-only "/status" query, or a message that
// advances a paused/running/awaiting_review run (spec.md §4.4 "Resume
// semantics").
func (rt *Runtime) processResume(ctx context.Context, claimed *queue.ClaimedMessage) error {
	msg := claimed.Payload
	runID := msg.WorkflowRunID

	if msg.Message == "/status" {
		progress, err := rt.store.LoadProgress(runID)
		if err != nil {
			out := rt.ackOutbound(claimed, fmt.Sprintf("workflow run `%s` was not found", runID))
			_, cErr := queue.CompleteSuccess(rt.queuePaths, claimed, out)
			return cErr
		}
		out := rt.ackOutbound(claimed, fmt.Sprintf("run `%s` is %s at step `%s` (attempt %d)",
			runID, progress.State, progress.CurrentStepID, progress.Attempt))
		_, err = queue.CompleteSuccess(rt.queuePaths, claimed, out)
		return err
	}

	run, err := rt.store.LoadRun(runID)
	if err != nil {
		out := rt.ackOutbound(claimed, fmt.Sprintf("workflow run `%s` was not found", runID))
		_, cErr := queue.CompleteSuccess(rt.queuePaths, claimed, out)
		return cErr
	}
	if run.State.IsTerminal() {
		out := rt.ackOutbound(claimed, fmt.Sprintf("workflow run `%s` has already finished (%s)", runID, run.State))
		_, cErr := queue.CompleteSuccess(rt.queuePaths, claimed, out)
		return cErr
	}

	orch, err := rt.cfg.Orchestrator(run.OrchestratorID)
	if err != nil {
		if _, rqErr := queue.RequeueFailure(rt.queuePaths, claimed); rqErr != nil {
			return rqErr
		}
		return err
	}
	def, err := workflow.LoadDefinition(filepath.Join(rt.workflowsDir, run.WorkflowID+".yaml"))
	if err != nil {
		if _, rqErr := queue.RequeueFailure(rt.queuePaths, claimed); rqErr != nil {
			return rqErr
		}
		return err
	}

	engine := workflow.NewEngine(rt.store, rt.paths, rt.newProviderRunner(orch), orch.Defaults, rt.log)
	resumed, runErr := engine.Resume(ctx, def, runID, msg.Message)
	out := rt.runOutbound(claimed, resumed, runErr)
	if _, err := queue.CompleteSuccess(rt.queuePaths, claimed, out); err != nil {
		return err
	}
	return runErr
}

func (rt *Runtime) resolveOrchestratorID(msg queue.IncomingMessage) (string, error) {
	if msg.Channel == "scheduler" {
		var env scheduler.TriggerEnvelope
		if err := json.Unmarshal([]byte(msg.Message), &env); err == nil && env.OrchestratorID != "" {
			return env.OrchestratorID, nil
		}
	}
	if msg.ChannelProfileID == "" {
		return "", &direrr.MissingChannelProfileIDError{MessageID: msg.MessageID}
	}
	orchID, ok := rt.cfg.ChannelProfileOrchestrator(msg.ChannelProfileID)
	if !ok {
		return "", &direrr.UnknownChannelProfileError{ChannelProfileID: msg.ChannelProfileID}
	}
	return orchID, nil
}

func (rt *Runtime) newProviderRunner(orch OrchestratorConfig) workflow.ProviderRunner {
	return provider.New(orch.Agents)
}

func (rt *Runtime) newSelectorLoop(orch OrchestratorConfig) *selector.Loop {
	return selector.New(rt.paths, rt.newProviderRunner(orch), selectorExistenceChecker{rt}, rt.log)
}

type selectorExistenceChecker struct{ rt *Runtime }

func (c selectorExistenceChecker) WorkflowExists(orchestratorID, workflowID string) bool {
	return c.rt.cfg.WorkflowExists(orchestratorID, workflowID)
}

func (rt *Runtime) ackOutbound(claimed *queue.ClaimedMessage, message string) queue.OutgoingMessage {
	msg := claimed.Payload
	return queue.OutgoingMessage{
		Channel:          msg.Channel,
		ChannelProfileID: msg.ChannelProfileID,
		Sender:           "direclaw",
		Message:          message,
		OriginalMessage:  msg.Message,
		Timestamp:        time.Now().UTC().Unix(),
		MessageID:        msg.MessageID,
		ConversationID:   msg.ConversationID,
		WorkflowRunID:    msg.WorkflowRunID,
		WorkflowStepID:   msg.WorkflowStepID,
	}
}

// runOutbound renders the user-visible reply for a run that just
// advanced (or failed to), per spec.md §7 "User-visible outbound
// replies carry the kind and a short human sentence".
func (rt *Runtime) runOutbound(claimed *queue.ClaimedMessage, run *workflow.Run, runErr error) queue.OutgoingMessage {
	out := rt.ackOutbound(claimed, "")
	if run == nil {
		out.Message = fmt.Sprintf("workflow failed to start: %v", runErr)
		return out
	}
	out.WorkflowRunID = run.RunID
	out.WorkflowStepID = run.CurrentStepID
	switch {
	case runErr != nil:
		out.Message = fmt.Sprintf("workflow run `%s` failed: %v", run.RunID, runErr)
	case run.State == workflow.RunSucceeded:
		out.Message = fmt.Sprintf("workflow run `%s` completed", run.RunID)
	case run.State == workflow.RunAwaitingReview:
		out.Message = fmt.Sprintf("workflow run `%s` is awaiting review at step `%s`", run.RunID, run.CurrentStepID)
	default:
		out.Message = fmt.Sprintf("workflow run `%s` is %s at step `%s`", run.RunID, run.State, run.CurrentStepID)
	}
	return out
}

func newRunID(orchestratorID, workflowID string) string {
	return fmt.Sprintf("run-%s-%s-%s", orchestratorID, workflowID, uuid.New().String())
}

// persistOrchestratorMessage records the claimed message at
// orchestrator/messages/<message_id>.json (spec.md §6's state-root
// layout) before selection or resume runs. Persistence is best-effort:
// a write failure is logged but never blocks message processing, since
// the record is an audit trail, not part of the queue's durability
// contract.
func (rt *Runtime) persistOrchestratorMessage(msg queue.IncomingMessage) {
	path := filepath.Join(rt.paths.OrchestratorMessages, msg.MessageID+".json")
	if err := writeJSONAtomic(path, msg); err != nil {
		rt.log.Error("failed to persist orchestrator message", "message_id", msg.MessageID, "error", err)
	}
}

// writeJSONAtomic marshals v and writes it to path via a temp-file,
// fsync, rename sequence so readers never observe a partial write.
func writeJSONAtomic(path string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &direrr.ParseError{Path: path, Err: err}
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &direrr.IOError{Path: dir, Op: "create_temp", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return &direrr.IOError{Path: tmpPath, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &direrr.IOError{Path: tmpPath, Op: "fsync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &direrr.IOError{Path: tmpPath, Op: "close", Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &direrr.IOError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
