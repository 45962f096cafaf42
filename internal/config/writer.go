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
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dmuso/direclaw/pkg/direrr"
)

// AtomicWrite encodes cfg as YAML and writes it to path via
// temp-file-then-rename, so a concurrent reader never observes a
// partially written config file.
func AtomicWrite(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".direclaw-config-*.tmp")
	if err != nil {
		return &direrr.IOError{Path: dir, Op: "create_temp", Err: err}
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	encoder := yaml.NewEncoder(tmpFile)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		tmpFile.Close()
		return &direrr.ParseError{Path: tmpPath, Err: err}
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return &direrr.IOError{Path: tmpPath, Op: "sync", Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &direrr.IOError{Path: tmpPath, Op: "close", Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &direrr.IOError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
