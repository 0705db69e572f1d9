/*
 * Copyright 2026 The Manuscript Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package document

import (
	"github.com/manuscript-team/manuscript/pkg/document/key"
)

// EventType is the type of an engine event. All notification fan-out goes
// through this single typed enum over one ordered channel.
type EventType string

const (
	// DocumentChanged is published when the document content or metadata
	// changed, locally or through a merge.
	DocumentChanged EventType = "document-changed"

	// PresenceChanged is published when a collaborator joins or leaves.
	PresenceChanged EventType = "presence-changed"

	// SyncStatusChanged is published when the sync engine changes state for
	// the document.
	SyncStatusChanged EventType = "sync-status-changed"
)

// Event is a single notification delivered to the dispatcher.
type Event struct {
	// Type is the type of the event.
	Type EventType

	// DocumentKey is the key of the document the event concerns.
	DocumentKey key.Key

	// Actor is the hex of the actor that caused the event, when known.
	Actor string
}

const eventBufferSize = 128

// Events returns the ordered event channel of this document. Events are
// dropped when no dispatcher drains the channel fast enough; they carry no
// payload, so a dropped event only delays a refresh.
func (d *Document) Events() <-chan Event {
	return d.events
}

// NotifySyncStatus publishes a sync-status event for this document. The sync
// engine calls it when a channel starts or stops.
func (d *Document) NotifySyncStatus() {
	d.publish(SyncStatusChanged, "")
}

func (d *Document) publish(t EventType, actor string) {
	event := Event{Type: t, DocumentKey: d.key, Actor: actor}
	select {
	case d.events <- event:
	default:
	}
}
