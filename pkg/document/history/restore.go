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

import "fmt"

// Restore brings the document body back to the state of the given snapshot
// by appending a single new change. The log before the restore point stays
// intact, so the restore itself can be undone.
func (h *History) Restore(snapshotID string) error {
	target, err := h.ContentAt(snapshotID)
	if err != nil {
		return err
	}

	source := h.doc.Source()
	if source == target {
		return nil
	}

	message := fmt.Sprintf("restore to %s", snapshotID)
	if _, err := h.doc.EditWithMessage(0, len(source), target, message); err != nil {
		return fmt.Errorf("%v: %w", err, ErrRestoreFailed)
	}

	h.Invalidate()
	return nil
}

// RestoreSection rewrites only the named section to match the given
// snapshot, leaving the rest of the document untouched. The section must
// exist both in the current document and in the target snapshot.
func (h *History) RestoreSection(hint, snapshotID string) error {
	target, err := h.ContentAt(snapshotID)
	if err != nil {
		return err
	}

	targetSection, ok := findSection(Sections(target), hint)
	if !ok {
		return fmt.Errorf("section %q at snapshot %s: %w", hint, snapshotID, ErrSectionNotFound)
	}

	source := h.doc.Source()
	currentSection, ok := findSection(Sections(source), hint)
	if !ok {
		return fmt.Errorf("section %q: %w", hint, ErrSectionNotFound)
	}

	replacement := target[targetSection.From:targetSection.To]
	if source[currentSection.From:currentSection.To] == replacement {
		return nil
	}

	message := fmt.Sprintf("restore section %q to %s", hint, snapshotID)
	if _, err := h.doc.EditWithMessage(
		currentSection.From, currentSection.To, replacement, message,
	); err != nil {
		return fmt.Errorf("%v: %w", err, ErrRestoreFailed)
	}

	h.Invalidate()
	return nil
}
