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

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsKeychainReference(t *testing.T) {
	key, ok := IsKeychainReference("keychain:github-token")
	require.True(t, ok)
	require.Equal(t, "github-token", key)

	_, ok = IsKeychainReference("env:GITHUB_TOKEN")
	require.False(t, ok)
}

func TestNewKeychainProviderSchemeIsKeychain(t *testing.T) {
	provider := NewKeychainProvider("direclaw-test")
	require.Equal(t, "keychain", provider.Scheme())
}

func TestSyncSkipsNonKeychainReferences(t *testing.T) {
	destDir := filepath.Join(t.TempDir(), "secrets")
	provider := NewKeychainProvider("direclaw-test-sync")
	if !provider.available {
		t.Skip("keychain not available on this system")
	}

	err := Sync(nil, provider, destDir, map[string]string{
		"PLAIN_ENV": "env:SOME_VAR",
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(destDir, "PLAIN_ENV"))
	require.True(t, os.IsNotExist(err))
}
