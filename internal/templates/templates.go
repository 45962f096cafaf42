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

// Package templates ships default workflow scaffolds embedded in the
// binary. EnsureInstalled copies any that are missing into a template
// directory, never overwriting a file already there; state bootstrap
// creates the templates directory but does not call EnsureInstalled
// (spec.md is silent on starter content; this recovers the original
// implementation's orchestrator template install).
package templates

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dmuso/direclaw/pkg/direrr"
)

//go:embed *.yaml
var embeddedFS embed.FS

// Template describes one embedded workflow scaffold.
type Template struct {
	Name        string
	Description string
	FileName    string
}

var descriptions = map[string]string{
	"minimal":     "Single-step general purpose workflow",
	"engineering": "Plan, implement, and review engineering work",
	"product":     "Research and draft a product requirements document",
}

// List returns every embedded template's metadata.
func List() ([]Template, error) {
	matches, err := doublestar.Glob(embeddedFS, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded templates: %w", err)
	}
	templates := make([]Template, 0, len(matches))
	for _, name := range matches {
		id := strings.TrimSuffix(name, ".yaml")
		desc := descriptions[id]
		if desc == "" {
			desc = "Workflow template"
		}
		templates = append(templates, Template{Name: id, Description: desc, FileName: name})
	}
	return templates, nil
}

// Get returns the raw content of the named embedded template.
func Get(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, "./\\") {
		return nil, fmt.Errorf("invalid template name: %q", name)
	}
	content, err := embeddedFS.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("template %q not found: %w", name, err)
	}
	return content, nil
}

// EnsureInstalled copies every embedded template into destDir whose
// filename isn't already present, leaving any existing file untouched.
// Returns the names of templates actually written.
func EnsureInstalled(destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &direrr.IOError{Path: destDir, Op: "mkdir", Err: err}
	}

	templates, err := List()
	if err != nil {
		return nil, err
	}

	var written []string
	for _, tmpl := range templates {
		destPath := filepath.Join(destDir, tmpl.FileName)
		if _, err := os.Stat(destPath); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return written, &direrr.IOError{Path: destPath, Op: "stat", Err: err}
		}

		content, err := Get(tmpl.Name)
		if err != nil {
			return written, err
		}
		if err := writeTemplateFile(destPath, content); err != nil {
			return written, err
		}
		written = append(written, tmpl.FileName)
	}
	return written, nil
}

func writeTemplateFile(destPath string, content []byte) error {
	dir := filepath.Dir(destPath)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &direrr.IOError{Path: dir, Op: "create_temp", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return &direrr.IOError{Path: tmpPath, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &direrr.IOError{Path: tmpPath, Op: "close", Err: err}
	}
	return os.Rename(tmpPath, destPath)
}
