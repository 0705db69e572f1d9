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

package sync

import (
	"context"
	"time"

	"github.com/manuscript-team/manuscript/internal/logging"
	"github.com/manuscript-team/manuscript/pkg/document"
	"github.com/manuscript-team/manuscript/pkg/document/change"
	"github.com/manuscript-team/manuscript/pkg/storage"
)

// DefaultFlushInterval is how often unflushed local changes are persisted.
const DefaultFlushInterval = 3 * time.Second

// Personal reconciles a replica with its on-disk document package. When a
// file-synchronization service rewrites the package underneath us, the
// stored log is merged back in; local edits are flushed to disk so the
// service can carry them to the user's other machines.
type Personal struct {
	store         *storage.Store
	watchInterval time.Duration
	flushInterval time.Duration
	logger        logging.Logger
}

// NewPersonal creates a personal sync loop over the given store. Zero
// intervals fall back to the defaults.
func NewPersonal(store *storage.Store, watchInterval, flushInterval time.Duration) *Personal {
	if watchInterval <= 0 {
		watchInterval = storage.DefaultWatchInterval
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &Personal{
		store:         store,
		watchInterval: watchInterval,
		flushInterval: flushInterval,
		logger:        logging.New("sync.personal"),
	}
}

// Run keeps the replica and its document package reconciled until the
// context is done.
func (p *Personal) Run(ctx context.Context, doc *document.Document) error {
	events := p.store.Watch(ctx, doc.Key(), p.watchInterval)
	flush := time.NewTicker(p.flushInterval)
	defer flush.Stop()

	doc.NotifySyncStatus()
	defer doc.NotifySyncStatus()

	for {
		select {
		case <-ctx.Done():
			// Final flush so no local change is stranded in memory.
			if doc.HasLocalChanges() {
				if err := p.store.SaveDocument(doc); err != nil {
					return err
				}
				doc.FlushLocalChanges()
			}
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if err := p.MergeStored(doc); err != nil {
				p.logger.Warnf("merge stored changes: %v", err)
			}
		case <-flush.C:
			if !doc.HasLocalChanges() {
				continue
			}
			if err := p.store.SaveDocument(doc); err != nil {
				p.logger.Warnf("flush document: %v", err)
				continue
			}
			doc.FlushLocalChanges()
		}
	}
}

// MergeStored merges the on-disk change log into the replica. Changes the
// replica already holds are skipped by the merge itself.
func (p *Personal) MergeStored(doc *document.Document) error {
	changes, err := p.store.LoadChanges(doc.Key())
	if err != nil {
		return err
	}

	pack := change.NewPack(doc.Key(), vectorOf(changes), changes)
	if err := doc.ApplyChangePack(pack); err != nil {
		return err
	}

	p.logger.Debugf("merged stored log of %s, %d changes", doc.Key(), len(changes))
	return nil
}

// vectorOf summarizes the given changes as a version vector.
func vectorOf(changes []*change.Change) change.Vector {
	vector := change.NewVector()
	for _, c := range changes {
		vector.Forward(c.ID().Actor().String(), c.ID().ClientSeq())
	}
	return vector
}
