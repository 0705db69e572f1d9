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

import "strings"

// Section is a named byte range of the document body. Sections run from the
// start of their heading line to the start of the next heading, or the end
// of the document.
type Section struct {
	Hint string
	From int
	To   int
}

// Sections extracts the sections of the given source. Both LaTeX-style
// \section{...} headings and Markdown # headings are recognized. Content
// before the first heading belongs to no section.
func Sections(source string) []Section {
	var sections []Section

	offset := 0
	for offset <= len(source) {
		lineEnd := strings.IndexByte(source[offset:], '\n')
		var next int
		var line string
		if lineEnd < 0 {
			line = source[offset:]
			next = len(source) + 1
		} else {
			line = source[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		}

		if hint, ok := headingOf(line); ok {
			if n := len(sections); n > 0 {
				sections[n-1].To = offset
			}
			sections = append(sections, Section{Hint: hint, From: offset, To: len(source)})
		}
		offset = next
	}

	return sections
}

// headingOf reports whether the line is a section heading and extracts its
// hint.
func headingOf(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)

	for _, prefix := range []string{`\section*{`, `\section{`} {
		if strings.HasPrefix(trimmed, prefix) {
			rest := trimmed[len(prefix):]
			if end := strings.IndexByte(rest, '}'); end >= 0 {
				return strings.TrimSpace(rest[:end]), true
			}
		}
	}

	if strings.HasPrefix(trimmed, "#") {
		hint := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		if hint != "" {
			return hint, true
		}
	}

	return "", false
}

// sectionHints returns the ordered hint names of the given sections.
func sectionHints(sections []Section) []string {
	hints := make([]string, len(sections))
	for i, s := range sections {
		hints[i] = s.Hint
	}
	return hints
}

// findSection returns the section with the given hint. The first match wins
// when hints repeat.
func findSection(sections []Section, hint string) (Section, bool) {
	for _, s := range sections {
		if s.Hint == hint {
			return s, true
		}
	}
	return Section{}, false
}
