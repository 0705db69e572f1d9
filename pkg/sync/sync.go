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

// Package sync exchanges document changes between replicas. Two channels are
// supported: a personal channel that reconciles copies of the same document
// arriving through a synchronized directory, and a collaborative channel
// that exchanges change packs with other authors through a relay. Both reuse
// the same merge: applying a change pack is idempotent and commutative, so
// duplicated, reordered or crossed messages converge.
package sync

import (
	"errors"
	"fmt"
	gosync "sync"

	"github.com/manuscript-team/manuscript/internal/logging"
	"github.com/manuscript-team/manuscript/pkg/document"
	"github.com/manuscript-team/manuscript/pkg/document/change"
	"github.com/manuscript-team/manuscript/pkg/document/key"
)

var (
	// ErrMalformedMessage is returned when an inbound sync message cannot
	// be decoded. The message is dropped; the replica is not touched.
	ErrMalformedMessage = errors.New("malformed sync message")

	// ErrRelayClosed is returned when the relay connection is gone and
	// reconnection attempts ran out.
	ErrRelayClosed = errors.New("relay closed")
)

// Syncer tracks, per document and peer, the version vector the peer has
// acknowledged, and builds minimal sync messages from it.
type Syncer struct {
	mu gosync.Mutex

	acked  map[key.Key]map[string]change.Vector
	logger logging.Logger
}

// NewSyncer creates an empty syncer.
func NewSyncer() *Syncer {
	return &Syncer{
		acked:  make(map[key.Key]map[string]change.Vector),
		logger: logging.New("sync"),
	}
}

// GenerateSyncMessage builds a sync message for the given peer containing
// the changes the peer has not acknowledged. It returns nil when the peer is
// already up to date.
func (s *Syncer) GenerateSyncMessage(doc *document.Document, peer string) ([]byte, error) {
	s.mu.Lock()
	acked := s.acked[doc.Key()][peer]
	s.mu.Unlock()

	pack := doc.CreatePack(acked)
	if len(pack.Changes) == 0 {
		return nil, nil
	}

	data, err := change.EncodePack(pack)
	if err != nil {
		return nil, err
	}

	s.logger.Debugf("sync message for %s: %d changes", peer, len(pack.Changes))
	return data, nil
}

// ReceiveSyncMessage merges an inbound sync message into the replica and
// records what the sender holds. A message for another document or one that
// cannot be decoded is rejected without touching the replica.
func (s *Syncer) ReceiveSyncMessage(doc *document.Document, peer string, data []byte) error {
	pack, err := change.DecodePack(data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrMalformedMessage)
	}

	if err := doc.ApplyChangePack(pack); err != nil {
		return err
	}

	s.Acknowledge(doc.Key(), peer, pack.Vector)
	return nil
}

// Acknowledge records that the peer holds at least the given vector.
func (s *Syncer) Acknowledge(k key.Key, peer string, vector change.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers, ok := s.acked[k]
	if !ok {
		peers = make(map[string]change.Vector)
		s.acked[k] = peers
	}

	acked, ok := peers[peer]
	if !ok {
		acked = change.NewVector()
		peers[peer] = acked
	}
	for actor, seq := range vector {
		acked.Forward(actor, seq)
	}
}

// Acked returns a copy of the vector the peer has acknowledged for the
// document.
func (s *Syncer) Acked(k key.Key, peer string) change.Vector {
	s.mu.Lock()
	defer s.mu.Unlock()

	acked, ok := s.acked[k][peer]
	if !ok {
		return change.NewVector()
	}
	return acked.DeepCopy()
}

// Forget drops the acknowledged state of the peer, forcing the next sync
// message to carry the full log.
func (s *Syncer) Forget(k key.Key, peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.acked[k], peer)
}
