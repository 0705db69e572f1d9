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

package change

import (
	"strconv"

	"github.com/manuscript-team/manuscript/pkg/document/time"
)

// InitialID represents the initial state ID. Usually this is used to
// represent a state where nothing has been edited.
var InitialID = NewID(0, 0, time.InitialActorID)

// ID is for identifying a Change. This struct is immutable.
type ID struct {
	// clientSeq is a sequence index of the change on the replica that made it.
	clientSeq uint32

	// lamport is the lamport timestamp of the change.
	lamport int64

	// actor is the ID of the replica that made the change.
	actor *time.ActorID
}

// NewID creates a new instance of ID.
func NewID(clientSeq uint32, lamport int64, actor *time.ActorID) ID {
	return ID{
		clientSeq: clientSeq,
		lamport:   lamport,
		actor:     actor,
	}
}

// Next creates a next ID of this ID.
func (id ID) Next() ID {
	return ID{
		clientSeq: id.clientSeq + 1,
		lamport:   id.lamport + 1,
		actor:     id.actor,
	}
}

// NewTimeTicket creates a ticket of the given delimiter.
func (id ID) NewTimeTicket(delimiter uint32) *time.Ticket {
	return time.NewTicket(id.lamport, delimiter, id.actor)
}

// SyncLamport syncs this ID with the lamport timestamp of a received change.
// The returned ID keeps the local clientSeq but advances the clock past the
// other replica's.
func (id ID) SyncLamport(otherLamport int64) ID {
	if id.lamport < otherLamport {
		return ID{clientSeq: id.clientSeq, lamport: otherLamport, actor: id.actor}
	}

	return ID{clientSeq: id.clientSeq, lamport: id.lamport + 1, actor: id.actor}
}

// SetActor sets the given actor.
func (id ID) SetActor(actor *time.ActorID) ID {
	return ID{clientSeq: id.clientSeq, lamport: id.lamport, actor: actor}
}

// ClientSeq returns the client sequence of this ID.
func (id ID) ClientSeq() uint32 {
	return id.clientSeq
}

// Lamport returns the lamport clock of this ID.
func (id ID) Lamport() int64 {
	return id.lamport
}

// Actor returns the actor of this ID.
func (id ID) Actor() *time.ActorID {
	return id.actor
}

// Key returns the string identifying this change uniquely across replicas.
func (id ID) Key() string {
	return id.actor.String() + ":" + strconv.FormatUint(uint64(id.clientSeq), 10)
}
