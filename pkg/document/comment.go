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

	"github.com/rs/xid"
)

// Comment is anchored to a byte range of the document at creation time. The
// anchor is not re-anchored when later edits shift the text; staleness is
// surfaced through Stale instead of being hidden.
type Comment struct {
	// ID identifies the comment.
	ID string

	// Author is the identity that wrote the comment.
	Author Identity

	// CreatedAt is when the comment was written.
	CreatedAt gotime.Time

	// From and To are the anchored byte range at creation time.
	From int
	To   int

	// anchored is the text the range covered when the comment was created.
	anchored string

	// Body is the comment text.
	Body string

	// Resolved marks the comment thread as handled.
	Resolved bool

	// Replies is the flat list of replies to this comment.
	Replies []Reply
}

// Reply is a single reply in a comment thread.
type Reply struct {
	Author    Identity
	CreatedAt gotime.Time
	Body      string
}

func newComment(author Identity, from, to int, anchored, body string) *Comment {
	return &Comment{
		ID:        xid.New().String(),
		Author:    author,
		CreatedAt: gotime.Now(),
		From:      from,
		To:        to,
		anchored:  anchored,
		Body:      body,
	}
}

// StaleAgainst reports whether the anchored range no longer covers the text
// it was created on. The source text as of the check is passed in by the
// document under its read lock.
func (c *Comment) StaleAgainst(source string) bool {
	if c.From < 0 || c.To > len(source) || c.From > c.To {
		return true
	}
	return source[c.From:c.To] != c.anchored
}
