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

import "errors"

var (
	// ErrSnapshotNotFound is returned when no change with the given snapshot
	// ID exists in the document's log.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrSectionNotFound is returned when the requested section hint does
	// not resolve to a section, either in the current document or in the
	// target snapshot.
	ErrSectionNotFound = errors.New("section not found")

	// ErrRestoreFailed is returned when the restoring edit could not be
	// applied. The document is left unmodified.
	ErrRestoreFailed = errors.New("restore failed")
)
