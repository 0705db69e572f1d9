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

// Package storage persists documents as package directories on disk. Each
// document key maps to a directory holding the serialized change log and the
// local metadata. Writes are atomic: a torn write never leaves a half
// document behind.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	gotime "time"

	"github.com/manuscript-team/manuscript/internal/logging"
	"github.com/manuscript-team/manuscript/pkg/document"
	"github.com/manuscript-team/manuscript/pkg/document/change"
	"github.com/manuscript-team/manuscript/pkg/document/key"
)

const (
	changesFile = "changes.json"
	metaFile    = "meta.json"
)

var (
	// ErrDocumentNotFound is returned when no document package exists for
	// the given key.
	ErrDocumentNotFound = errors.New("document not found in storage")
)

// Store persists documents under a root directory.
type Store struct {
	root   string
	logger logging.Logger
}

type metaJSON struct {
	Key           string             `json:"key"`
	Owner         string             `json:"owner"`
	CreatedAt     gotime.Time        `json:"created_at"`
	Collaborators []collaboratorJSON `json:"collaborators"`
}

type collaboratorJSON struct {
	Identity    string      `json:"identity"`
	Permissions uint8       `json:"permissions"`
	AddedBy     string      `json:"added_by"`
	AddedAt     gotime.Time `json:"added_at"`
}

// NewStore opens a store rooted at the given directory, creating it when
// missing.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{
		root:   root,
		logger: logging.New("storage"),
	}, nil
}

// Root returns the root directory of this store.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) documentDir(k key.Key) string {
	return filepath.Join(s.root, k.String())
}

// SaveDocument writes the document's change log and metadata to its package
// directory.
func (s *Store) SaveDocument(doc *document.Document) error {
	dir := s.documentDir(doc.Key())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}

	changes, err := change.EncodeChanges(doc.Log())
	if err != nil {
		return err
	}

	meta := doc.Metadata()
	collaborators := make([]collaboratorJSON, 0, len(meta.Collaborators))
	for _, c := range meta.Collaborators {
		collaborators = append(collaborators, collaboratorJSON{
			Identity:    string(c.Identity),
			Permissions: uint8(c.Permissions),
			AddedBy:     string(c.AddedBy),
			AddedAt:     c.AddedAt,
		})
	}
	metaBytes, err := json.MarshalIndent(metaJSON{
		Key:           doc.Key().String(),
		Owner:         string(meta.Owner),
		CreatedAt:     meta.CreatedAt,
		Collaborators: collaborators,
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := writeAtomic(filepath.Join(dir, changesFile), changes); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(dir, metaFile), metaBytes); err != nil {
		return err
	}

	s.logger.Debugf("saved document %s, %d changes", doc.Key(), len(doc.Log()))
	return nil
}

// LoadDocument reconstructs the document stored under the given key. The
// returned replica acts on behalf of the given identity.
func (s *Store) LoadDocument(k key.Key, localIdentity document.Identity) (*document.Document, error) {
	dir := s.documentDir(k)

	metaBytes, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s: %w", k, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta metaJSON
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	changeBytes, err := os.ReadFile(filepath.Join(dir, changesFile))
	if err != nil {
		return nil, fmt.Errorf("read changes: %w", err)
	}
	changes, err := change.DecodeChanges(changeBytes)
	if err != nil {
		return nil, err
	}

	owner := document.Identity(meta.Owner)
	doc, err := document.Load(k, owner, localIdentity, meta.CreatedAt, changes)
	if err != nil {
		return nil, err
	}

	for _, c := range meta.Collaborators {
		if document.Identity(c.Identity) == owner {
			continue
		}
		err := doc.AddCollaborator(owner, document.Collaborator{
			Identity:    document.Identity(c.Identity),
			Permissions: document.Permission(c.Permissions),
			AddedBy:     document.Identity(c.AddedBy),
			AddedAt:     c.AddedAt,
		})
		if err != nil {
			return nil, err
		}
	}

	doc.SetLocalIdentity(localIdentity)
	return doc, nil
}

// LoadChanges reads the raw change log stored under the given key without
// building a replica.
func (s *Store) LoadChanges(k key.Key) ([]*change.Change, error) {
	changeBytes, err := os.ReadFile(filepath.Join(s.documentDir(k), changesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s: %w", k, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("read changes: %w", err)
	}
	return change.DecodeChanges(changeBytes)
}

// ListDocuments returns the keys of every stored document.
func (s *Store) ListDocuments() ([]key.Key, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read storage root: %w", err)
	}

	var keys []key.Key
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		k, err := key.FromString(entry.Name())
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// RemoveDocument deletes the document package directory.
func (s *Store) RemoveDocument(k key.Key) error {
	dir := s.documentDir(k)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("document %s: %w", k, ErrDocumentNotFound)
	}
	return os.RemoveAll(dir)
}

// writeAtomic writes data to path through a temporary file in the same
// directory followed by a rename.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
