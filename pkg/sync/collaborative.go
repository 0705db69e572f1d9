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
	"errors"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/manuscript-team/manuscript/internal/logging"
	"github.com/manuscript-team/manuscript/pkg/document"
)

// DefaultBroadcastInterval is how often pending local changes are offered to
// the relay.
const DefaultBroadcastInterval = 500 * time.Millisecond

// relayPeer is the acknowledged-state key used for the broadcast channel.
// The relay fans out to everyone, so one shared vector suffices.
const relayPeer = "relay"

// Collaborative runs the live co-authoring session of one document: inbound
// sync messages from the relay are merged into the replica, and new local
// changes are broadcast to the other authors.
type Collaborative struct {
	syncer    *Syncer
	relay     Relay
	broadcast time.Duration
	logger    logging.Logger
}

// NewCollaborative creates a collaborative session driver. A zero broadcast
// interval falls back to the default.
func NewCollaborative(syncer *Syncer, relay Relay, broadcast time.Duration) *Collaborative {
	if broadcast <= 0 {
		broadcast = DefaultBroadcastInterval
	}
	return &Collaborative{
		syncer:    syncer,
		relay:     relay,
		broadcast: broadcast,
		logger:    logging.New("sync.collab"),
	}
}

// Run drives the session until the context is done or the relay goes away
// for good.
func (c *Collaborative) Run(ctx context.Context, doc *document.Document) error {
	inbound, err := c.relay.Subscribe(ctx, doc.Key())
	if err != nil {
		return err
	}
	doc.NotifySyncStatus()
	defer doc.NotifySyncStatus()

	ticker := time.NewTicker(c.broadcast)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-inbound:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrRelayClosed
			}
			if err := c.syncer.ReceiveSyncMessage(doc, relayPeer, data); err != nil {
				if errors.Is(err, ErrMalformedMessage) {
					c.logger.Warnf("dropping malformed message for %s: %v", doc.Key(), err)
					continue
				}
				return err
			}
		case <-ticker.C:
			if err := c.Flush(ctx, doc); err != nil {
				return err
			}
		}
	}
}

// Flush broadcasts the changes the relay has not seen yet. Publishing is
// retried with backoff; once the relay accepted the message the current
// vector counts as delivered.
func (c *Collaborative) Flush(ctx context.Context, doc *document.Document) error {
	// The delivered vector is captured before the message is built: an edit
	// landing while the publish is in flight stays unacknowledged and goes
	// out on the next flush.
	vector := doc.Vector()
	data, err := c.syncer.GenerateSyncMessage(doc, relayPeer)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	operation := func() error {
		return c.relay.Publish(ctx, doc.Key(), data)
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return err
	}

	c.syncer.Acknowledge(doc.Key(), relayPeer, vector)
	return nil
}
