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

package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmuso/direclaw/internal/state"
)

func newTestStore(t *testing.T) (*Store, *state.StatePaths) {
	t.Helper()
	paths := state.New(t.TempDir())
	require.NoError(t, paths.Bootstrap())
	return NewStore(paths), paths
}

func TestStoreSaveAndLoadRun(t *testing.T) {
	store, _ := newTestStore(t)

	run := &Run{RunID: "run-1", WorkflowID: "triage", State: RunRunning, CurrentStepID: "collect"}
	require.NoError(t, store.SaveRun(run))
	require.False(t, run.UpdatedAt.IsZero())

	loaded, err := store.LoadRun("run-1")
	require.NoError(t, err)
	require.Equal(t, "triage", loaded.WorkflowID)
	require.Equal(t, RunRunning, loaded.State)
}

func TestStoreLoadRunUnknownID(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.LoadRun("nonexistent")
	require.Error(t, err)
}

func TestStoreSaveAndLoadProgress(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.SaveProgress(&Progress{RunID: "run-1", State: RunRunning, CurrentStepID: "collect", Attempt: 1}))

	progress, err := store.LoadProgress("run-1")
	require.NoError(t, err)
	require.Equal(t, "collect", progress.CurrentStepID)
	require.Equal(t, 1, progress.Attempt)
}

func TestStoreLoadProgressUnknownID(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.LoadProgress("nonexistent")
	require.Error(t, err)
}

func TestStoreAppendEngineLog(t *testing.T) {
	store, paths := newTestStore(t)

	require.NoError(t, store.AppendEngineLog("run-1", "first line"))
	require.NoError(t, store.AppendEngineLog("run-1", "second line"))

	body, err := os.ReadFile(paths.EngineLogPath("run-1"))
	require.NoError(t, err)
	require.Contains(t, string(body), "first line")
	require.Contains(t, string(body), "second line")
}

func TestStoreSaveInvocationAndResult(t *testing.T) {
	store, paths := newTestStore(t)

	require.NoError(t, store.SaveInvocation("run-1", "collect", 1, &Invocation{Agent: "worker"}))
	require.NoError(t, store.SaveResult("run-1", "collect", 1, map[string]any{"status": "complete"}))

	dir := paths.AttemptDir("run-1", "collect", 1)
	require.FileExists(t, filepath.Join(dir, "invocation.json"))
	require.FileExists(t, filepath.Join(dir, "result.json"))
}

func TestStoreWritePromptAndContext(t *testing.T) {
	store, paths := newTestStore(t)

	require.NoError(t, store.WritePromptAndContext("run-1", "collect", 1, "prompt body", "context body"))

	dir := store.AttemptDir("run-1", "collect", 1)
	require.Equal(t, paths.AttemptDir("run-1", "collect", 1), dir)

	promptBody, err := os.ReadFile(filepath.Join(dir, "prompt.md"))
	require.NoError(t, err)
	require.Equal(t, "prompt body", string(promptBody))

	contextBody, err := os.ReadFile(filepath.Join(dir, "context.md"))
	require.NoError(t, err)
	require.Equal(t, "context body", string(contextBody))
}

func TestStoreWritePromptAndContextSkipsEmptyContext(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.WritePromptAndContext("run-1", "collect", 1, "prompt only", ""))

	dir := store.AttemptDir("run-1", "collect", 1)
	require.FileExists(t, filepath.Join(dir, "prompt.md"))
	require.NoFileExists(t, filepath.Join(dir, "context.md"))
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	require.NoError(t, writeFileAtomic(path, []byte("first")))
	require.NoError(t, writeFileAtomic(path, []byte("second")))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second", string(body))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no leftover temp files")
}
