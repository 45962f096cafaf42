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

// Package shared holds the direclaw CLI's global flag state, exit
// codes, and the path resolution every subcommand needs to find the
// state root and config file.
package shared

import (
	"os"
	"path/filepath"
)

// Global flag values, set by the root command's persistent flags.
var (
	verboseFlag    bool
	jsonFlag       bool
	stateRootFlag  string
	configFlag     string

	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlagPointers returns pointers bound by the root command.
func RegisterFlagPointers() (verbose *bool, jsonOut *bool, stateRoot *string, config *string) {
	return &verboseFlag, &jsonFlag, &stateRootFlag, &configFlag
}

// SetVersion records build-time version metadata (called from main).
func SetVersion(v, c, b string) {
	version, commit, buildDate = v, c, b
}

// GetVersion returns build-time version metadata.
func GetVersion() (string, string, string) { return version, commit, buildDate }

// GetVerbose reports whether -v/--verbose was passed.
func GetVerbose() bool { return verboseFlag }

// GetJSON reports whether --json was passed.
func GetJSON() bool { return jsonFlag }

// StateRoot resolves the state root directory: --state-root flag, then
// DIRECLAW_STATE_ROOT, then ~/.direclaw/state.
func StateRoot() string {
	if stateRootFlag != "" {
		return stateRootFlag
	}
	if env := os.Getenv("DIRECLAW_STATE_ROOT"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".direclaw", "state")
}

// ConfigPath resolves the orchestrator config file: --config flag, then
// DIRECLAW_CONFIG, then ~/.direclaw/config.yaml.
func ConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	if env := os.Getenv("DIRECLAW_CONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".direclaw", "config.yaml")
}

// WorkflowsDir resolves the workflow definition directory: DIRECLAW_WORKFLOWS_DIR,
// else <state-root>/../workflows sitting next to the state root.
func WorkflowsDir() string {
	if env := os.Getenv("DIRECLAW_WORKFLOWS_DIR"); env != "" {
		return env
	}
	return filepath.Join(filepath.Dir(StateRoot()), "workflows")
}
