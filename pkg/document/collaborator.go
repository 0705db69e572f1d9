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
	gotime "time"
)

// Identity is the platform account identifier of a user. Resolution to a
// display name or email happens in the identity directory, outside the core.
type Identity string

// Permission is a single capability on a document.
type Permission uint8

const (
	// PermView allows reading the document.
	PermView Permission = 1 << iota
	// PermComment allows adding and replying to comments.
	PermComment
	// PermEdit allows modifying the document body and title.
	PermEdit
	// PermShare allows inviting further collaborators.
	PermShare
	// PermAdmin allows managing collaborators and revoking access.
	PermAdmin
)

// Has returns whether the permission set contains the given permission.
func (p Permission) Has(perm Permission) bool {
	return p&perm == perm
}

// Role is a named, composable permission set.
type Role string

const (
	// RoleReviewer can view and comment.
	RoleReviewer Role = "reviewer"
	// RoleAuthor can view, comment and edit.
	RoleAuthor Role = "author"
	// RoleCoAuthor can additionally share the document.
	RoleCoAuthor Role = "co-author"
)

// Permissions returns the permission set of this role.
func (r Role) Permissions() Permission {
	switch r {
	case RoleReviewer:
		return PermView | PermComment
	case RoleAuthor:
		return PermView | PermComment | PermEdit
	case RoleCoAuthor:
		return PermView | PermComment | PermEdit | PermShare
	}
	return 0
}

// Collaborator is a user granted access to a document.
type Collaborator struct {
	// Identity is the account of the collaborator.
	Identity Identity

	// Permissions is the capability set of the collaborator.
	Permissions Permission

	// AddedBy is the identity that granted the access.
	AddedBy Identity

	// AddedAt is when the access was granted.
	AddedAt gotime.Time
}
