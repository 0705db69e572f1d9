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

package crdt

// Root is the root of the replicated state of a document: the text body and
// the title register. Everything else on a document is either local-only or
// derived from the change log.
type Root struct {
	body  *Text
	title *Register
}

// NewRoot creates a new instance of Root.
func NewRoot() *Root {
	return &Root{
		body:  NewText(),
		title: NewRegister(),
	}
}

// Body returns the text body of this root.
func (r *Root) Body() *Text {
	return r.body
}

// Title returns the title register of this root.
func (r *Root) Title() *Register {
	return r.title
}
