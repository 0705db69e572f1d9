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
	gosync "sync"

	"github.com/manuscript-team/manuscript/pkg/document/key"
)

// Relay carries sync messages between the authors of a document. A message
// published for a document reaches every subscriber of that document,
// including, possibly, the publisher itself; the merge tolerates that.
type Relay interface {
	Publish(ctx context.Context, k key.Key, data []byte) error
	Subscribe(ctx context.Context, k key.Key) (<-chan []byte, error)
	Close() error
}

// MemoryRelay is an in-process relay. It backs tests and single-process
// setups where several replicas collaborate without a network.
type MemoryRelay struct {
	mu     gosync.Mutex
	subs   map[key.Key][]chan []byte
	closed bool
}

// NewMemoryRelay creates an empty in-process relay.
func NewMemoryRelay() *MemoryRelay {
	return &MemoryRelay{subs: make(map[key.Key][]chan []byte)}
}

// Publish delivers the message to every subscriber of the document. Slow
// subscribers drop messages rather than block the publisher; the next sync
// round resends what is missing.
func (r *MemoryRelay) Publish(_ context.Context, k key.Key, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRelayClosed
	}
	for _, sub := range r.subs[k] {
		select {
		case sub <- data:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for the document. The channel is closed
// when the context is done or the relay is closed.
func (r *MemoryRelay) Subscribe(ctx context.Context, k key.Key) (<-chan []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRelayClosed
	}

	sub := make(chan []byte, 16)
	r.subs[k] = append(r.subs[k], sub)

	go func() {
		<-ctx.Done()
		r.unsubscribe(k, sub)
	}()

	return sub, nil
}

func (r *MemoryRelay) unsubscribe(k key.Key, sub chan []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.subs[k]
	for i, s := range subs {
		if s == sub {
			r.subs[k] = append(subs[:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes the relay and every subscriber channel.
func (r *MemoryRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	for _, subs := range r.subs {
		for _, sub := range subs {
			close(sub)
		}
	}
	r.subs = make(map[key.Key][]chan []byte)
	return nil
}
