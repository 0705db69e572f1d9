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

// Package key provides the key of documents.
package key

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInvalidKey is returned when the given key is not a valid document key.
	ErrInvalidKey = errors.New("invalid document key")
)

// Key represents the opaque identifier of a document. Every other component
// references documents only through this key.
type Key string

// New creates a fresh random document key.
func New() Key {
	return Key(uuid.NewString())
}

// FromString returns the Key of the given string after validating it.
func FromString(s string) (Key, error) {
	k := Key(s)
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

// Validate checks whether this key is a well-formed identifier.
func (k Key) Validate() error {
	if _, err := uuid.Parse(string(k)); err != nil {
		return fmt.Errorf("%s: %w", k, ErrInvalidKey)
	}
	return nil
}

// String returns the string representation of this key.
func (k Key) String() string {
	return string(k)
}
