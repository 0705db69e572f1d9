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
	"errors"
	"fmt"
)

var (
	// ErrCompilationFailed is the sentinel matched by CompilationError.
	ErrCompilationFailed = errors.New("compilation failed")

	// ErrMissingResource is returned when the source references a resource
	// that is not available, e.g. an image file.
	ErrMissingResource = errors.New("missing resource")

	// ErrTimeout is returned when rendering exceeded its deadline.
	ErrTimeout = errors.New("render timed out")

	// ErrGenerationFailed is returned when the backend failed for a reason
	// that is not a source problem.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrUnsupportedTemplate is returned when an export template is not
	// known to the exporter.
	ErrUnsupportedTemplate = errors.New("unsupported template")

	// ErrExportFailed is returned when applying a template failed.
	ErrExportFailed = errors.New("export failed")

	// ErrMissingCitation is the sentinel matched by MissingCitationError.
	ErrMissingCitation = errors.New("missing citation")
)

// CompilationError pinpoints a source problem that stopped rendering.
type CompilationError struct {
	Line    int
	Col     int
	Message string
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}

// Is matches CompilationError against ErrCompilationFailed.
func (e *CompilationError) Is(target error) bool {
	return target == ErrCompilationFailed
}

// MissingCitationError reports a citation key with no bibliography entry.
type MissingCitationError struct {
	Key string
}

// Error implements the error interface.
func (e *MissingCitationError) Error() string {
	return fmt.Sprintf("citation %q has no bibliography entry", e.Key)
}

// Is matches MissingCitationError against ErrMissingCitation.
func (e *MissingCitationError) Is(target error) bool {
	return target == ErrMissingCitation
}
