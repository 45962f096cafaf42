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

package queue

import "strings"

// OrderingKeyKind discriminates the three ways a message can be keyed for
// fairness scheduling.
type OrderingKeyKind int

const (
	// OrderingKeyWorkflowRun keys by an in-progress workflow run.
	OrderingKeyWorkflowRun OrderingKeyKind = iota
	// OrderingKeyConversation keys by channel + channel profile + conversation.
	OrderingKeyConversation
	// OrderingKeyMessage keys by the message id alone (no richer context).
	OrderingKeyMessage
)

// OrderingKey identifies the fairness-scheduling key for a claimed
// message. It is comparable and safe to use as a map key.
type OrderingKey struct {
	Kind             OrderingKeyKind
	WorkflowRunID    string
	Channel          string
	ChannelProfileID string
	ConversationID   string
	MessageID        string
}

// String renders a canonical, human-readable form of the key, used in
// logs.
func (k OrderingKey) String() string {
	switch k.Kind {
	case OrderingKeyWorkflowRun:
		return "workflow_run:" + k.WorkflowRunID
	case OrderingKeyConversation:
		return strings.Join([]string{"conversation", k.Channel, k.ChannelProfileID, k.ConversationID}, ":")
	default:
		return "message:" + k.MessageID
	}
}

// DeriveOrderingKey computes the fairness-scheduling key for a payload.
// Precedence: WorkflowRun(workflow_run_id) > Conversation{channel,
// channel_profile_id, conversation_id} > Message(message_id).
func DeriveOrderingKey(payload IncomingMessage) OrderingKey {
	if strings.TrimSpace(payload.WorkflowRunID) != "" {
		return OrderingKey{Kind: OrderingKeyWorkflowRun, WorkflowRunID: payload.WorkflowRunID}
	}

	if strings.TrimSpace(payload.ChannelProfileID) != "" && strings.TrimSpace(payload.ConversationID) != "" {
		return OrderingKey{
			Kind:             OrderingKeyConversation,
			Channel:          payload.Channel,
			ChannelProfileID: payload.ChannelProfileID,
			ConversationID:   payload.ConversationID,
		}
	}

	return OrderingKey{Kind: OrderingKeyMessage, MessageID: payload.MessageID}
}
