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
	"context"
	"time"
)

// ProviderRunner is the narrow subprocess-invocation contract the engine
// depends on (spec.md §4.6). internal/provider implements this; the
// runner never parses domain envelopes: Invoke returns stdout/stderr and
// exit status, and the engine itself parses the result envelope the
// provider writes at outputPath.
type ProviderRunner interface {
	Invoke(ctx context.Context, agent, promptPath, contextPath, outputPath string, deadline time.Duration) (*Invocation, error)
}
