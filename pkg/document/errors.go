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

import "errors"

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrReadOnly is returned when a mutating operation is attempted by an
	// identity without the required permission.
	ErrReadOnly = errors.New("document is read-only for this identity")

	// ErrInvalidFormat is returned when serialized document state cannot be
	// decoded.
	ErrInvalidFormat = errors.New("invalid document format")

	// ErrCollaboratorExists is returned when the identity already has access.
	ErrCollaboratorExists = errors.New("collaborator already exists")

	// ErrCollaboratorNotFound is returned when the identity has no access to
	// remove or update.
	ErrCollaboratorNotFound = errors.New("collaborator not found")

	// ErrCommentNotFound is returned when the referenced comment does not
	// exist.
	ErrCommentNotFound = errors.New("comment not found")
)
