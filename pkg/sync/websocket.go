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
	"fmt"
	gosync "sync"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	"github.com/manuscript-team/manuscript/internal/logging"
	"github.com/manuscript-team/manuscript/pkg/document/key"
)

// WebsocketRelay is a relay client speaking to a relay server over one
// websocket connection per document. The server is a plain fan-out: every
// binary message received on a document's connection is forwarded to the
// document's other connections.
type WebsocketRelay struct {
	endpoint string
	dialer   *websocket.Dialer
	logger   logging.Logger

	mu     gosync.Mutex
	conns  map[key.Key]*websocket.Conn
	closed bool
}

// NewWebsocketRelay creates a relay client for the given endpoint, e.g.
// "wss://relay.example.com/sync".
func NewWebsocketRelay(endpoint string) *WebsocketRelay {
	return &WebsocketRelay{
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
		conns:    make(map[key.Key]*websocket.Conn),
		logger:   logging.New("sync.relay"),
	}
}

// conn returns the connection for the document, dialing with exponential
// backoff when there is none.
func (r *WebsocketRelay) conn(ctx context.Context, k key.Key) (*websocket.Conn, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRelayClosed
	}
	if conn, ok := r.conns[k]; ok {
		r.mu.Unlock()
		return conn, nil
	}
	r.mu.Unlock()

	var conn *websocket.Conn
	operation := func() error {
		var err error
		conn, _, err = r.dialer.DialContext(ctx, r.endpoint+"?document="+k.String(), nil)
		if err != nil {
			r.logger.Debugf("dial relay for %s: %v", k, err)
		}
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return nil, fmt.Errorf("dial relay: %v: %w", err, ErrRelayClosed)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		conn.Close()
		return nil, ErrRelayClosed
	}
	if existing, ok := r.conns[k]; ok {
		conn.Close()
		return existing, nil
	}
	r.conns[k] = conn
	return conn, nil
}

// drop discards the connection for the document so the next use redials.
func (r *WebsocketRelay) drop(k key.Key, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[k] == conn {
		delete(r.conns, k)
	}
	conn.Close()
}

// Publish sends the message on the document's connection, redialing once
// when the connection went away in between.
func (r *WebsocketRelay) Publish(ctx context.Context, k key.Key, data []byte) error {
	for attempt := 0; attempt < 2; attempt++ {
		conn, err := r.conn(ctx, k)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err == nil {
			return nil
		}
		r.drop(k, conn)
	}
	return fmt.Errorf("publish to %s: %w", k, ErrRelayClosed)
}

// Subscribe reads messages for the document into the returned channel,
// redialing with backoff on connection loss, until the context is done.
func (r *WebsocketRelay) Subscribe(ctx context.Context, k key.Key) (<-chan []byte, error) {
	if _, err := r.conn(ctx, k); err != nil {
		return nil, err
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		for {
			conn, err := r.conn(ctx, k)
			if err != nil {
				return
			}
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					r.drop(k, conn)
					break
				}
				select {
				case out <- data:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()

	return out, nil
}

// Close closes every connection. In-flight subscriptions end.
func (r *WebsocketRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for k, conn := range r.conns {
		conn.Close()
		delete(r.conns, k)
	}
	return nil
}
