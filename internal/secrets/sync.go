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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmuso/direclaw/pkg/direrr"
)

// Resolver resolves one reference's scheme into a plaintext value.
type Resolver interface {
	Scheme() string
	Resolve(ctx context.Context, reference string) (string, error)
}

// Sync resolves every keychain: reference in refs (name -> reference)
// through resolver and writes each resolved value to
// <destDir>/<name>, creating destDir if needed and using 0600
// permissions since these files hold plaintext secrets. Entries whose
// reference does not use the keychain: scheme are left untouched on
// disk (another resolver, or a plain env var, owns them instead).
func Sync(ctx context.Context, resolver *KeychainProvider, destDir string, refs map[string]string) error {
	if err := os.MkdirAll(destDir, 0o700); err != nil {
		return &direrr.IOError{Path: destDir, Op: "mkdir", Err: err}
	}

	for name, ref := range refs {
		key, ok := IsKeychainReference(ref)
		if !ok {
			continue
		}
		value, err := resolver.Resolve(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to sync secret %q: %w", name, err)
		}
		path := filepath.Join(destDir, name)
		if err := writeSecretFile(path, value); err != nil {
			return err
		}
	}
	return nil
}

func writeSecretFile(path, value string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &direrr.IOError{Path: dir, Op: "create_temp", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return &direrr.IOError{Path: tmpPath, Op: "chmod", Err: err}
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return &direrr.IOError{Path: tmpPath, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &direrr.IOError{Path: tmpPath, Op: "close", Err: err}
	}
	return os.Rename(tmpPath, path)
}
