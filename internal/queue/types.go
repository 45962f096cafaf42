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

// Package queue implements the filesystem-backed message queue: atomic
// claim/complete/requeue over an incoming/processing/outgoing directory
// triad, inbound/outbound file-tag normalization, crash recovery, and the
// per-key fairness scheduler that sits between the queue and the workers.
package queue

import "path/filepath"

// IncomingMessage is the payload of a file under queue/incoming.
type IncomingMessage struct {
	Channel          string   `json:"channel"`
	ChannelProfileID string   `json:"channelProfileId,omitempty"`
	Sender           string   `json:"sender"`
	SenderID         string   `json:"senderId"`
	Message          string   `json:"message"`
	Timestamp        int64    `json:"timestamp"`
	MessageID        string   `json:"messageId"`
	ConversationID   string   `json:"conversationId,omitempty"`
	Files            []string `json:"files,omitempty"`
	WorkflowRunID    string   `json:"workflowRunId,omitempty"`
	WorkflowStepID   string   `json:"workflowStepId,omitempty"`
}

// OutgoingMessage is the payload of a file under queue/outgoing.
type OutgoingMessage struct {
	Channel          string   `json:"channel"`
	ChannelProfileID string   `json:"channelProfileId,omitempty"`
	Sender           string   `json:"sender"`
	Message          string   `json:"message"`
	OriginalMessage  string   `json:"originalMessage"`
	Timestamp        int64    `json:"timestamp"`
	MessageID        string   `json:"messageId"`
	Agent            string   `json:"agent"`
	ConversationID   string   `json:"conversationId,omitempty"`
	Files            []string `json:"files,omitempty"`
	WorkflowRunID    string   `json:"workflowRunId,omitempty"`
	WorkflowStepID   string   `json:"workflowStepId,omitempty"`
}

// Paths names the three directories a queue instance operates over.
type Paths struct {
	Incoming   string
	Processing string
	Outgoing   string
}

// PathsFromStateRoot builds Paths rooted at a state directory's queue
// subtree.
func PathsFromStateRoot(stateRoot string) Paths {
	return Paths{
		Incoming:   filepath.Join(stateRoot, "queue", "incoming"),
		Processing: filepath.Join(stateRoot, "queue", "processing"),
		Outgoing:   filepath.Join(stateRoot, "queue", "outgoing"),
	}
}

// ClaimedMessage owns both the original incoming path and the moved-to
// processing path plus the parsed, normalized payload.
type ClaimedMessage struct {
	IncomingPath   string
	ProcessingPath string
	Payload        IncomingMessage
}

// Outbound truncation and size limits (spec.md §4.2).
const (
	OutboundMaxChars          = 4000
	OutboundTruncateKeepChars = 3900
	OutboundTruncationSuffix  = "\n\n[Response truncated...]"
)

// OutboundContent is the result of stripping and truncating an outgoing
// message's text.
type OutboundContent struct {
	Message      string
	Files        []string
	OmittedFiles []string
}
