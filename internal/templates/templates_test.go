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

package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListReturnsEmbeddedTemplates(t *testing.T) {
	templates, err := List()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, tmpl := range templates {
		names[tmpl.Name] = true
	}
	require.True(t, names["minimal"])
	require.True(t, names["engineering"])
	require.True(t, names["product"])
}

func TestGetRejectsPathTraversal(t *testing.T) {
	_, err := Get("../../etc/passwd")
	require.Error(t, err)
}

func TestGetReturnsTemplateContent(t *testing.T) {
	content, err := Get("minimal")
	require.NoError(t, err)
	require.Contains(t, string(content), "id: default")
}

func TestEnsureInstalledWritesMissingAndSkipsExisting(t *testing.T) {
	destDir := t.TempDir()

	written, err := EnsureInstalled(destDir)
	require.NoError(t, err)
	require.Len(t, written, 3)

	for _, name := range []string{"minimal.yaml", "engineering.yaml", "product.yaml"} {
		_, err := os.Stat(filepath.Join(destDir, name))
		require.NoError(t, err)
	}

	customized := []byte("id: overridden\n")
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "minimal.yaml"), customized, 0o644))

	written, err = EnsureInstalled(destDir)
	require.NoError(t, err)
	require.Empty(t, written)

	content, err := os.ReadFile(filepath.Join(destDir, "minimal.yaml"))
	require.NoError(t, err)
	require.Equal(t, customized, content)
}
