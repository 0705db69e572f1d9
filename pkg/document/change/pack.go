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
	"github.com/manuscript-team/manuscript/pkg/document/key"
)

// Pack is a unit for exchanging changes between replicas. It carries the
// sender's version vector so that the receiver can acknowledge what the
// sender has seen.
type Pack struct {
	// DocumentKey is the key of the document this pack belongs to.
	DocumentKey key.Key

	// Vector is the sender's version vector at the time the pack was built.
	Vector Vector

	// Changes is the ordered list of changes the receiver may be missing.
	Changes []*Change
}

// NewPack creates a new instance of Pack.
func NewPack(k key.Key, vector Vector, changes []*Change) *Pack {
	return &Pack{
		DocumentKey: k,
		Vector:      vector,
		Changes:     changes,
	}
}

// IsEmpty returns whether this pack carries no changes.
func (p *Pack) IsEmpty() bool {
	return len(p.Changes) == 0
}
