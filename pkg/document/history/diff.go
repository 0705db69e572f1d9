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

package history

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Hunk is one contiguous difference between two snapshots. From and To are
// byte offsets into the older snapshot's content; Removed is the text that
// occupied that range and Inserted the text that replaced it.
type Hunk struct {
	From     int
	To       int
	Removed  string
	Inserted string

	// Author is the actor whose change produced the newer snapshot.
	Author string
}

// Diff compares the content of two snapshots and returns the hunks that turn
// the older one into the newer one. Hunks are attributed to the author of
// the newer snapshot.
func (h *History) Diff(fromID, toID string) ([]Hunk, error) {
	fromContent, _, err := h.contentAt(fromID)
	if err != nil {
		return nil, err
	}
	toContent, toAuthor, err := h.contentAt(toID)
	if err != nil {
		return nil, err
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(fromContent, toContent, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var hunks []Hunk
	pos := 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos += len(d.Text)
		case diffmatchpatch.DiffDelete:
			hunks = append(hunks, Hunk{
				From:    pos,
				To:      pos + len(d.Text),
				Removed: d.Text,
				Author:  toAuthor,
			})
			pos += len(d.Text)
		case diffmatchpatch.DiffInsert:
			// A deletion directly before an insertion is one replacement.
			if n := len(hunks); n > 0 && hunks[n-1].To == pos && hunks[n-1].Inserted == "" {
				hunks[n-1].Inserted = d.Text
				continue
			}
			hunks = append(hunks, Hunk{
				From:     pos,
				To:       pos,
				Inserted: d.Text,
				Author:   toAuthor,
			})
		}
	}

	return hunks, nil
}
