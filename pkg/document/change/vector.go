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

// Vector is a version vector that tracks, per actor, the highest contiguous
// client sequence that has been applied to a replica. It is used to decide
// which changes a peer still needs and to make merges idempotent.
type Vector map[string]uint32

// NewVector creates an empty Vector.
func NewVector() Vector {
	return Vector{}
}

// Seq returns the highest applied sequence for the given actor, 0 if none.
func (v Vector) Seq(actor string) uint32 {
	return v[actor]
}

// Forward records that all changes of the actor up to seq have been applied.
// It never moves the vector backwards.
func (v Vector) Forward(actor string, seq uint32) {
	if v[actor] < seq {
		v[actor] = seq
	}
}

// Covers returns whether the change with the given ID is already reflected in
// this vector.
func (v Vector) Covers(id ID) bool {
	return v.Seq(id.Actor().String()) >= id.ClientSeq()
}

// Max merges the given vector into this one, keeping the element-wise max.
func (v Vector) Max(other Vector) {
	for actor, seq := range other {
		v.Forward(actor, seq)
	}
}

// AfterOrEqual returns whether this vector covers every element of the other.
func (v Vector) AfterOrEqual(other Vector) bool {
	for actor, seq := range other {
		if v.Seq(actor) < seq {
			return false
		}
	}
	return true
}

// DeepCopy returns a copy of this vector.
func (v Vector) DeepCopy() Vector {
	copied := make(Vector, len(v))
	for actor, seq := range v {
		copied[actor] = seq
	}
	return copied
}
