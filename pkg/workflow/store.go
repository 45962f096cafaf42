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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmuso/direclaw/internal/state"
	"github.com/dmuso/direclaw/pkg/direrr"
)

// Store persists runs, their progress snapshots, and their transition
// logs under the state root's workflows/runs tree.
type Store struct {
	paths *state.StatePaths
}

// NewStore builds a Store rooted at paths.
func NewStore(paths *state.StatePaths) *Store {
	return &Store{paths: paths}
}

// SaveRun atomically writes a run's metadata file, stamping UpdatedAt.
func (s *Store) SaveRun(run *Run) error {
	run.UpdatedAt = time.Now().UTC()
	path := s.paths.RunFile(run.RunID)
	return writeJSONAtomic(path, run)
}

// LoadRun reads a run's metadata file, returning direrr.UnknownRunIDError
// if it does not exist.
func (s *Store) LoadRun(runID string) (*Run, error) {
	path := s.paths.RunFile(runID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &direrr.UnknownRunIDError{RunID: runID}
		}
		return nil, &direrr.IOError{Path: path, Op: "read", Err: err}
	}
	var run Run
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, &direrr.ParseError{Path: path, Err: err}
	}
	return &run, nil
}

// SaveProgress writes the run's progress snapshot.
func (s *Store) SaveProgress(p *Progress) error {
	dir := filepath.Dir(s.paths.ProgressPath(p.RunID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &direrr.IOError{Path: dir, Op: "mkdir", Err: err}
	}
	return writeJSONAtomic(s.paths.ProgressPath(p.RunID), p)
}

// LoadProgress reads a run's progress snapshot.
func (s *Store) LoadProgress(runID string) (*Progress, error) {
	path := s.paths.ProgressPath(runID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &direrr.UnknownRunIDError{RunID: runID}
		}
		return nil, &direrr.IOError{Path: path, Op: "read", Err: err}
	}
	var p Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &direrr.ParseError{Path: path, Err: err}
	}
	return &p, nil
}

// AppendEngineLog appends a single line to the run's engine.log.
func (s *Store) AppendEngineLog(runID, line string) error {
	path := s.paths.EngineLogPath(runID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &direrr.IOError{Path: filepath.Dir(path), Op: "mkdir", Err: err}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &direrr.IOError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()
	stamped := fmt.Sprintf("%s %s\n", time.Now().UTC().Format(time.RFC3339Nano), line)
	if _, err := f.WriteString(stamped); err != nil {
		return &direrr.IOError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// AttemptDir returns the directory for a given run/step/attempt.
func (s *Store) AttemptDir(runID, stepID string, attempt int) string {
	return s.paths.AttemptDir(runID, stepID, attempt)
}

// AttemptOutputsDir returns the outputs root for a given attempt.
func (s *Store) AttemptOutputsDir(runID, stepID string, attempt int) string {
	return s.paths.AttemptOutputsDir(runID, stepID, attempt)
}

// SaveInvocation writes a step attempt's invocation.json.
func (s *Store) SaveInvocation(runID, stepID string, attempt int, inv *Invocation) error {
	dir := s.AttemptDir(runID, stepID, attempt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &direrr.IOError{Path: dir, Op: "mkdir", Err: err}
	}
	return writeJSONAtomic(filepath.Join(dir, "invocation.json"), inv)
}

// SaveResult writes a step attempt's result.json (the parsed envelope).
func (s *Store) SaveResult(runID, stepID string, attempt int, result any) error {
	dir := s.AttemptDir(runID, stepID, attempt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &direrr.IOError{Path: dir, Op: "mkdir", Err: err}
	}
	return writeJSONAtomic(filepath.Join(dir, "result.json"), result)
}

// WritePromptAndContext writes a step attempt's prompt.md and context.md.
func (s *Store) WritePromptAndContext(runID, stepID string, attempt int, prompt, context string) error {
	dir := s.AttemptDir(runID, stepID, attempt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &direrr.IOError{Path: dir, Op: "mkdir", Err: err}
	}
	if err := writeFileAtomic(filepath.Join(dir, "prompt.md"), []byte(prompt)); err != nil {
		return err
	}
	if context == "" {
		return nil
	}
	return writeFileAtomic(filepath.Join(dir, "context.md"), []byte(context))
}

// writeJSONAtomic marshals v and writes it to path via writeFileAtomic.
func writeJSONAtomic(path string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &direrr.ParseError{Path: path, Err: err}
	}
	return writeFileAtomic(path, body)
}

// writeFileAtomic writes body to a temp file in the same directory as
// path, fsyncs it, then renames it into place — the "tmp, fsync, rename"
// contract spec.md §4.4 requires for every persisted artifact.
func writeFileAtomic(path string, body []byte) error {
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
