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

package time

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/rs/xid"
)

const actorIDSize = 12

var (
	// InitialActorID represents the initial value of ActorID.
	InitialActorID = &ActorID{}

	// MaxActorID represents the maximum value of ActorID.
	MaxActorID = &ActorID{
		bytes: [actorIDSize]byte{
			math.MaxUint8, math.MaxUint8, math.MaxUint8, math.MaxUint8,
			math.MaxUint8, math.MaxUint8, math.MaxUint8, math.MaxUint8,
			math.MaxUint8, math.MaxUint8, math.MaxUint8, math.MaxUint8,
		},
	}

	// ErrInvalidHexString is returned when the given string is not valid hex.
	ErrInvalidHexString = errors.New("invalid hex string")

	// ErrInvalidActorID is returned when the given ID is not valid.
	ErrInvalidActorID = errors.New("invalid actor id")
)

// ActorID represents the unique ID of an editing replica. It is composed of
// 12 bytes. It caches the hex representation to reduce repeated encoding;
// the cache makes it unsafe for unsynchronized concurrent use.
type ActorID struct {
	bytes [actorIDSize]byte

	cachedString string
}

// NewActorID creates a fresh random ActorID.
func NewActorID() *ActorID {
	id := &ActorID{}
	copy(id.bytes[:], xid.New().Bytes())
	return id
}

// ActorIDFromHex returns the ActorID represented by the hexadecimal string.
func ActorIDFromHex(str string) (*ActorID, error) {
	actorID := &ActorID{}

	if str == "" {
		return actorID, fmt.Errorf("%s: %w", str, ErrInvalidHexString)
	}

	decoded, err := hex.DecodeString(str)
	if err != nil {
		return actorID, fmt.Errorf("%s: %w", str, ErrInvalidHexString)
	}

	if len(decoded) != actorIDSize {
		return actorID, fmt.Errorf("decoded length %d: %w", len(decoded), ErrInvalidHexString)
	}

	copy(actorID.bytes[:], decoded[:actorIDSize])
	return actorID, nil
}

// ActorIDFromBytes returns the ActorID represented by the given bytes.
func ActorIDFromBytes(b []byte) (*ActorID, error) {
	actorID := &ActorID{}

	if len(b) != actorIDSize {
		return actorID, fmt.Errorf("bytes length %d: %w", len(b), ErrInvalidActorID)
	}

	copy(actorID.bytes[:], b)
	return actorID, nil
}

// String returns the hexadecimal encoding of ActorID.
func (id *ActorID) String() string {
	if id.cachedString == "" {
		id.cachedString = hex.EncodeToString(id.bytes[:])
	}

	return id.cachedString
}

// Bytes returns the bytes of ActorID itself.
func (id *ActorID) Bytes() []byte {
	return id.bytes[:]
}

// Compare returns an integer comparing two ActorID lexicographically.
// The result will be 0 if id==other, -1 if id < other, and +1 if id > other.
// If the receiver or argument is nil, it would panic at runtime.
func (id *ActorID) Compare(other *ActorID) int {
	return bytes.Compare(id.bytes[:], other.bytes[:])
}
