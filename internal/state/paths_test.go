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

package state_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmuso/direclaw/internal/state"
)

func TestBootstrap_CreatesAllSubtrees(t *testing.T) {
	root := t.TempDir()
	paths := state.New(root)

	require.NoError(t, paths.Bootstrap())

	for _, dir := range []string{
		paths.QueueIncoming,
		paths.QueueProcessing,
		paths.QueueOutgoing,
		paths.WorkflowRuns,
		paths.OrchestratorMessages,
		paths.OrchestratorSelectLog,
		paths.OrchestratorSelectOuts,
		paths.LogsDir,
		paths.ChannelsDir,
		paths.AutomationJobsDir,
		paths.TemplatesDir,
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err, "expected %s to exist", dir)
		require.True(t, info.IsDir())
	}
}

func TestBootstrap_IsIdempotent(t *testing.T) {
	root := t.TempDir()
	paths := state.New(root)

	require.NoError(t, paths.Bootstrap())

	marker := filepath.Join(paths.QueueIncoming, "keepme.json")
	require.NoError(t, os.WriteFile(marker, []byte("{}"), 0o644))

	require.NoError(t, paths.Bootstrap())

	_, err := os.Stat(marker)
	require.NoError(t, err, "bootstrap must never delete existing content")
}

func TestRequireBootstrapped_FailsClosedWhenMissing(t *testing.T) {
	root := t.TempDir()
	paths := state.New(root)

	err := paths.RequireBootstrapped()
	require.Error(t, err)
}

func TestRequireBootstrapped_SucceedsAfterBootstrap(t *testing.T) {
	root := t.TempDir()
	paths := state.New(root)

	require.NoError(t, paths.Bootstrap())
	require.NoError(t, paths.RequireBootstrapped())
}

func TestAttemptOutputsDir_NestsUnderAttempt(t *testing.T) {
	paths := state.New("/tmp/state")

	got := paths.AttemptOutputsDir("run-1", "plan", 2)
	want := filepath.Join("/tmp/state", "workflows", "runs", "run-1", "steps", "plan", "attempts", "2", "outputs")
	require.Equal(t, want, got)
}

func TestRunFile_IsSiblingOfRunDir(t *testing.T) {
	paths := state.New("/tmp/state")
	require.Equal(t, filepath.Join("/tmp/state", "workflows", "runs", "run-1.json"), paths.RunFile("run-1"))
	require.NotEqual(t, paths.RunFile("run-1"), paths.RunDir("run-1"))
}

func TestProgressAndEngineLogPaths(t *testing.T) {
	paths := state.New("/tmp/state")
	require.Equal(t, filepath.Join("/tmp/state", "workflows", "runs", "run-1", "progress.json"), paths.ProgressPath("run-1"))
	require.Equal(t, filepath.Join("/tmp/state", "workflows", "runs", "run-1", "engine.log"), paths.EngineLogPath("run-1"))
}

func TestLogPath(t *testing.T) {
	paths := state.New("/tmp/state")
	require.Equal(t, filepath.Join("/tmp/state", "logs", "runtime.log"), paths.LogPath("runtime"))
}

func TestJobPath(t *testing.T) {
	paths := state.New("/tmp/state")
	require.Equal(t, filepath.Join("/tmp/state", "automation", "jobs", "job-1.json"), paths.JobPath("job-1"))
}
