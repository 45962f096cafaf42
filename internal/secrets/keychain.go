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

// Package secrets resolves keychain: scheme references into plaintext
// files the supervisor reads at start, so provider binaries never need
// direct keychain access themselves (spec.md §4.8 "run auth-sync").
package secrets

import (
	"context"
	"errors"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/dmuso/direclaw/pkg/direrr"
)

const keychainScheme = "keychain:"

// KeychainProvider resolves keychain: references through the system
// keychain (macOS Keychain Access, Linux Secret Service, Windows
// Credential Manager, via go-keyring).
type KeychainProvider struct {
	service   string
	available bool
}

// NewKeychainProvider builds a provider scoped to service, probing
// keychain availability once up front.
func NewKeychainProvider(service string) *KeychainProvider {
	p := &KeychainProvider{service: service, available: true}
	if _, err := keyring.Get(service, "__direclaw_availability_test__"); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		p.available = false
	}
	return p
}

// Scheme returns the reference scheme this provider resolves.
func (p *KeychainProvider) Scheme() string { return "keychain" }

// Resolve retrieves reference's entry from the keychain.
func (p *KeychainProvider) Resolve(ctx context.Context, reference string) (string, error) {
	if !p.available {
		return "", &direrr.ConfigError{Key: "keychain:" + reference, Reason: "system keychain unavailable or locked"}
	}
	value, err := keyring.Get(p.service, reference)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", &direrr.ConfigError{Key: "keychain:" + reference, Reason: "keychain entry not found"}
		}
		return "", &direrr.ConfigError{Key: "keychain:" + reference, Reason: "keychain access error: " + err.Error()}
	}
	return value, nil
}

// IsKeychainReference reports whether ref uses the keychain: scheme,
// returning the bare key if so.
func IsKeychainReference(ref string) (key string, ok bool) {
	if !strings.HasPrefix(ref, keychainScheme) {
		return "", false
	}
	return strings.TrimPrefix(ref, keychainScheme), true
}
