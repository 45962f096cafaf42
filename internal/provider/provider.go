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

// Package provider implements the subprocess provider runner (spec.md
// §4.6): it spawns a provider CLI binary, enforces a deadline, and
// captures stdout/stderr/exit status into an invocation.json. It never
// parses domain result envelopes; that stays the engine's and the
// selector's job.
package provider

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dmuso/direclaw/pkg/workflow"
)

// Kind names a provider runner failure mode (spec.md §4.6).
type Kind string

const (
	KindNonZeroExit   Kind = "non_zero_exit"
	KindTimeout       Kind = "timeout"
	KindSpawnFailure  Kind = "spawn_failure"
)

// Error wraps a provider-runner failure with its kind, keeping the
// underlying exec error available via Unwrap.
type Error struct {
	Kind     Kind
	Agent    string
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("provider %s: invocation timed out", e.Agent)
	case KindNonZeroExit:
		return fmt.Sprintf("provider %s: exited %d", e.Agent, e.ExitCode)
	default:
		return fmt.Sprintf("provider %s: spawn failed: %v", e.Agent, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// AgentSpec is the narrow view of agent config the runner needs to
// resolve a binary and build its argument scheme.
type AgentSpec struct {
	ID       string
	Provider string // "anthropic" | "openai"
	Model    string
}

// AgentResolver looks up an AgentSpec by agent id. internal/config
// supplies the production implementation.
type AgentResolver interface {
	ResolveAgent(agentID string) (AgentSpec, error)
}

const (
	defaultAnthropicBin = "claude"
	defaultOpenAIBin    = "codex"
)

// Runner implements workflow.ProviderRunner by spawning the resolved
// provider binary as an opaque subprocess (spec.md §4.6, §1 non-goal
// "no in-process LLM execution").
type Runner struct {
	agents AgentResolver
}

// New builds a Runner that resolves agents through agents.
func New(agents AgentResolver) *Runner {
	return &Runner{agents: agents}
}

var _ workflow.ProviderRunner = (*Runner)(nil)

// Invoke spawns the agent's provider binary with the prompt/context/output
// paths, waits up to deadline, and returns the captured Invocation. A
// non-zero exit or parse-unrelated spawn failure is reported through the
// returned error as a *Error of the matching Kind; inv is still populated
// when available so callers can persist invocation.json either way.
func (r *Runner) Invoke(ctx context.Context, agent, promptPath, contextPath, outputPath string, deadline time.Duration) (*workflow.Invocation, error) {
	spec, err := r.agents.ResolveAgent(agent)
	if err != nil {
		return nil, &Error{Kind: KindSpawnFailure, Agent: agent, Err: err}
	}

	bin := resolveBinary(spec.Provider)
	args := buildArgs(spec, promptPath, contextPath, outputPath)

	runCtx := ctx
	var cancel context.CancelFunc
	if deadline > 0 {
		runCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	timedOut := runCtx.Err() == context.DeadlineExceeded

	inv := &workflow.Invocation{
		Agent:      agent,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		TimedOut:   timedOut,
		DurationNs: elapsed.Nanoseconds(),
		Deadline:   deadline,
	}

	if runErr == nil {
		inv.ExitCode = 0
		return inv, nil
	}

	if timedOut {
		inv.Error = "timeout"
		return inv, &Error{Kind: KindTimeout, Agent: agent, Err: runErr}
	}

	var exitErr *exec.ExitError
	if errorsAsExitError(runErr, &exitErr) {
		inv.ExitCode = exitErr.ExitCode()
		inv.Error = fmt.Sprintf("exit %d", inv.ExitCode)
		return inv, &Error{Kind: KindNonZeroExit, Agent: agent, ExitCode: inv.ExitCode, Err: runErr}
	}

	inv.Error = runErr.Error()
	return inv, &Error{Kind: KindSpawnFailure, Agent: agent, Err: runErr}
}

// ResolveBinary exports resolveBinary's precedence order for the `doctor`
// diagnostic command, which reports whether each configured provider's
// binary is resolvable on PATH without actually invoking it.
func ResolveBinary(provider string) string {
	return resolveBinary(provider)
}

// resolveBinary applies the precedence order in spec.md §4.6: an
// environment override first, then a provider-specific default.
func resolveBinary(provider string) string {
	envKey := "DIRECLAW_PROVIDER_BIN_" + strings.ToUpper(provider)
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	switch strings.ToLower(provider) {
	case "openai":
		return defaultOpenAIBin
	default:
		return defaultAnthropicBin
	}
}

// buildArgs builds the provider's argument scheme. The runner treats the
// binary as a black box per spec.md §4.6: any scheme that passes the
// prompt/context/output paths and waits for completion satisfies the
// contract, so one straightforward flag scheme is used for every
// provider rather than per-CLI argument dialects.
func buildArgs(spec AgentSpec, promptPath, contextPath, outputPath string) []string {
	args := []string{
		"--print",
		"--output-format", "json",
		"--prompt-file", promptPath,
		"--output-file", outputPath,
	}
	if spec.Model != "" {
		args = append(args, "--model", spec.Model)
	}
	if contextPath != "" {
		args = append(args, "--context-file", contextPath)
	}
	return args
}

// errorsAsExitError reports whether err is itself an *exec.ExitError (a
// direct type assertion; wrapped errors are not unwrapped) and stores it
// in target.
func errorsAsExitError(err error, target **exec.ExitError) bool {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	*target = exitErr
	return true
}
