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

// Package history derives a navigable timeline from a document's change log.
// The log is the single source of truth: snapshots are not stored, they are
// reconstructed by replaying a prefix of the log. Restoring never rewrites
// the log; it appends new changes that bring the content back.
package history

import (
	"fmt"
	gotime "time"

	"github.com/manuscript-team/manuscript/pkg/document"
	"github.com/manuscript-team/manuscript/pkg/document/change"
	"github.com/manuscript-team/manuscript/pkg/document/crdt"
	"github.com/manuscript-team/manuscript/pkg/document/operations"
)

// Tag classifies why a snapshot is significant.
type Tag string

const (
	// TagSessionStart marks the first change of an editing session.
	TagSessionStart Tag = "session-start"

	// TagSessionEnd marks the last change before a session gap.
	TagSessionEnd Tag = "session-end"

	// TagLargeEdit marks a change that moved many bytes at once.
	TagLargeEdit Tag = "large-edit"

	// TagSectionChange marks a change that altered the section structure.
	TagSectionChange Tag = "section-change"

	// TagCollaboratorJoined marks the first change of a new collaborator.
	TagCollaboratorJoined Tag = "collaborator-joined"

	// TagManualCheckpoint marks a checkpoint explicitly left by a user.
	TagManualCheckpoint Tag = "manual-checkpoint"
)

// Snapshot identifies the document state right after one change was applied.
type Snapshot struct {
	// ID is the change's identifier within the log.
	ID string

	// Seq is the 1-based position of the change in the log.
	Seq int

	// Author is the actor that issued the change.
	Author string

	// Timestamp is the wall-clock creation time of the change.
	Timestamp gotime.Time

	// Description is the change's message, empty for plain edits.
	Description string

	// Tags are the significance markers attached during classification.
	Tags []Tag

	// BytesInserted and BytesRemoved summarize the change's effect.
	BytesInserted int
	BytesRemoved  int
}

// Significant reports whether this snapshot carries any tag.
func (s Snapshot) Significant() bool {
	return len(s.Tags) > 0
}

// Timeline is the derived view over a document's full change log.
type Timeline struct {
	Snapshots []Snapshot
}

// Significant returns the snapshots that carry at least one tag, in order.
func (t *Timeline) Significant() []Snapshot {
	var significant []Snapshot
	for _, s := range t.Snapshots {
		if s.Significant() {
			significant = append(significant, s)
		}
	}
	return significant
}

// TimelineCache caches the last computed timeline. It matches the engine's
// history cache; a nil cache disables caching.
type TimelineCache interface {
	Get() (*Timeline, bool)
	Put(*Timeline)
	Invalidate()
}

// Options tune how snapshots are classified.
type Options struct {
	// SessionGap is the idle period separating two editing sessions.
	SessionGap gotime.Duration

	// LargeEditBytes is the inserted-plus-removed byte count from which a
	// change is tagged as a large edit.
	LargeEditBytes int
}

const (
	// DefaultSessionGap separates editing sessions.
	DefaultSessionGap = 30 * gotime.Minute

	// DefaultLargeEditBytes is the default large edit threshold.
	DefaultLargeEditBytes = 256
)

// History computes timelines, point-in-time content, diffs and restores for
// a single document.
type History struct {
	doc   *document.Document
	opts  Options
	cache TimelineCache
}

// New creates a history view over the given document. A nil cache disables
// timeline caching.
func New(doc *document.Document, opts Options, cache TimelineCache) *History {
	if opts.SessionGap <= 0 {
		opts.SessionGap = DefaultSessionGap
	}
	if opts.LargeEditBytes <= 0 {
		opts.LargeEditBytes = DefaultLargeEditBytes
	}
	return &History{doc: doc, opts: opts, cache: cache}
}

// Invalidate drops the cached timeline. It is called when the document
// changes under this view.
func (h *History) Invalidate() {
	if h.cache != nil {
		h.cache.Invalidate()
	}
}

// Timeline computes the snapshot timeline from the document's change log,
// serving a cached copy while it stays fresh.
func (h *History) Timeline() (*Timeline, error) {
	if h.cache != nil {
		if timeline, ok := h.cache.Get(); ok {
			return timeline, nil
		}
	}

	timeline, err := h.buildTimeline(h.doc.Log())
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		h.cache.Put(timeline)
	}
	return timeline, nil
}

// buildTimeline replays the log once, classifying every change.
func (h *History) buildTimeline(log []*change.Change) (*Timeline, error) {
	timeline := &Timeline{}
	if len(log) == 0 {
		return timeline, nil
	}

	root := crdt.NewRoot()
	seen := map[string]bool{}
	prevSections := sectionHints(nil)

	for i, c := range log {
		lenBefore := root.Body().Len()
		if err := c.Execute(root); err != nil {
			return nil, fmt.Errorf("replay change %s: %w", c.ID().Key(), err)
		}
		source := root.Body().String()

		inserted := 0
		for _, op := range c.Operations() {
			if edit, ok := op.(*operations.Edit); ok {
				inserted += len(edit.Content())
			}
		}
		removed := lenBefore + inserted - len(source)
		if removed < 0 {
			removed = 0
		}

		snapshot := Snapshot{
			ID:            c.ID().Key(),
			Seq:           i + 1,
			Author:        c.ID().Actor().String(),
			Timestamp:     c.CreatedAt(),
			Description:   c.Message(),
			BytesInserted: inserted,
			BytesRemoved:  removed,
		}

		if i == 0 || sessionGap(log[i-1], c, h.opts.SessionGap) {
			snapshot.Tags = append(snapshot.Tags, TagSessionStart)
			if i > 0 {
				prev := &timeline.Snapshots[i-1]
				prev.Tags = append(prev.Tags, TagSessionEnd)
			}
		}
		if inserted+removed >= h.opts.LargeEditBytes {
			snapshot.Tags = append(snapshot.Tags, TagLargeEdit)
		}

		sections := sectionHints(Sections(source))
		if !equalHints(prevSections, sections) {
			snapshot.Tags = append(snapshot.Tags, TagSectionChange)
		}
		prevSections = sections

		if !seen[snapshot.Author] {
			seen[snapshot.Author] = true
			if i > 0 {
				snapshot.Tags = append(snapshot.Tags, TagCollaboratorJoined)
			}
		}
		if len(c.Operations()) == 0 && c.Message() != "" {
			snapshot.Tags = append(snapshot.Tags, TagManualCheckpoint)
		}

		timeline.Snapshots = append(timeline.Snapshots, snapshot)
	}

	return timeline, nil
}

// ContentAt reconstructs the document body as it was right after the change
// with the given snapshot ID was applied.
func (h *History) ContentAt(snapshotID string) (string, error) {
	content, _, err := h.contentAt(snapshotID)
	return content, err
}

// contentAt replays the log prefix ending at snapshotID and returns the body
// along with the author of the final change.
func (h *History) contentAt(snapshotID string) (string, string, error) {
	root := crdt.NewRoot()
	for _, c := range h.doc.Log() {
		if err := c.Execute(root); err != nil {
			return "", "", fmt.Errorf("replay change %s: %w", c.ID().Key(), err)
		}
		if c.ID().Key() == snapshotID {
			return root.Body().String(), c.ID().Actor().String(), nil
		}
	}
	return "", "", fmt.Errorf("snapshot %q: %w", snapshotID, ErrSnapshotNotFound)
}

// sessionGap reports whether the idle period between two consecutive changes
// exceeds the session gap. Changes without a timestamp never open a session.
func sessionGap(prev, cur *change.Change, gap gotime.Duration) bool {
	if prev.CreatedAt().IsZero() || cur.CreatedAt().IsZero() {
		return false
	}
	return cur.CreatedAt().Sub(prev.CreatedAt()) > gap
}

func equalHints(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
