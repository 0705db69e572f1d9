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

package render

import (
	"context"
	"strings"
)

// PlainRenderer is the built-in backend. It does no typesetting; it checks
// the source for structural problems and passes it through as a plain text
// artifact. Heavier backends replace it behind the same interface.
type PlainRenderer struct {
	// Bibliography maps the citation keys the source may reference.
	Bibliography map[string]struct{}
}

// Render validates the source and returns it as a text artifact.
func (r *PlainRenderer) Render(ctx context.Context, source string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrTimeout
	}
	if err := checkBraces(source); err != nil {
		return nil, err
	}
	if err := r.checkCitations(source); err != nil {
		return nil, err
	}

	return &Artifact{MIME: "text/plain", Data: []byte(source)}, nil
}

// checkBraces verifies that braces pair up, reporting the first that does
// not with its line and column.
func checkBraces(source string) error {
	type open struct {
		line int
		col  int
	}
	var stack []open

	line, col := 1, 1
	for i := 0; i < len(source); i++ {
		switch source[i] {
		case '\n':
			line++
			col = 0
		case '{':
			if i == 0 || source[i-1] != '\\' {
				stack = append(stack, open{line: line, col: col})
			}
		case '}':
			if i > 0 && source[i-1] == '\\' {
				break
			}
			if len(stack) == 0 {
				return &CompilationError{Line: line, Col: col, Message: "unexpected '}'"}
			}
			stack = stack[:len(stack)-1]
		}
		col++
	}

	if len(stack) > 0 {
		unclosed := stack[len(stack)-1]
		return &CompilationError{Line: unclosed.line, Col: unclosed.col, Message: "unclosed '{'"}
	}
	return nil
}

// checkCitations verifies that every \cite key has a bibliography entry.
func (r *PlainRenderer) checkCitations(source string) error {
	const marker = `\cite{`
	for offset := 0; ; {
		idx := strings.Index(source[offset:], marker)
		if idx < 0 {
			return nil
		}
		start := offset + idx + len(marker)
		end := strings.IndexByte(source[start:], '}')
		if end < 0 {
			return nil
		}
		for _, citationKey := range strings.Split(source[start:start+end], ",") {
			citationKey = strings.TrimSpace(citationKey)
			if citationKey == "" {
				continue
			}
			if _, ok := r.Bibliography[citationKey]; !ok {
				return &MissingCitationError{Key: citationKey}
			}
		}
		offset = start + end + 1
	}
}

// TemplateExporter is the built-in exporter. Each template is a function
// from source to exported bytes.
type TemplateExporter struct {
	templates map[string]func(source string) ([]byte, error)
}

// NewTemplateExporter creates an exporter with the built-in templates.
func NewTemplateExporter() *TemplateExporter {
	return &TemplateExporter{
		templates: map[string]func(string) ([]byte, error){
			"plain": func(source string) ([]byte, error) {
				return []byte(source), nil
			},
			"body-only": func(source string) ([]byte, error) {
				return []byte(stripComments(source)), nil
			},
		},
	}
}

// Export applies the named template to the source.
func (e *TemplateExporter) Export(ctx context.Context, source, template string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrTimeout
	}

	apply, ok := e.templates[template]
	if !ok {
		return nil, ErrUnsupportedTemplate
	}
	data, err := apply(source)
	if err != nil {
		return nil, ErrExportFailed
	}
	return data, nil
}

// Templates returns the names of the available templates.
func (e *TemplateExporter) Templates() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	return names
}

// stripComments drops % line comments, keeping escaped percent signs.
func stripComments(source string) string {
	var builder strings.Builder
	builder.Grow(len(source))

	for _, line := range strings.SplitAfter(source, "\n") {
		kept := line
		for i := 0; i < len(line); i++ {
			if line[i] != '%' {
				continue
			}
			if i > 0 && line[i-1] == '\\' {
				continue
			}
			kept = line[:i]
			if strings.HasSuffix(line, "\n") {
				kept += "\n"
			}
			break
		}
		builder.WriteString(kept)
	}
	return builder.String()
}
