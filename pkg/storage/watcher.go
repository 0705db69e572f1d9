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

package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/manuscript-team/manuscript/pkg/document/key"
)

// DefaultWatchInterval is the polling interval of Watch.
const DefaultWatchInterval = 2 * time.Second

// fingerprint identifies one on-disk version of a change log.
type fingerprint struct {
	modTime time.Time
	size    int64
}

func (s *Store) fingerprintOf(k key.Key) (fingerprint, bool) {
	info, err := os.Stat(filepath.Join(s.documentDir(k), changesFile))
	if err != nil {
		return fingerprint{}, false
	}
	return fingerprint{modTime: info.ModTime(), size: info.Size()}, true
}

// Watch polls the stored change log of the given document and signals on the
// returned channel whenever it changes on disk. Another process syncing the
// same directory, e.g. a file-synchronization service, shows up as such a
// change. The channel is closed when the context is done.
func (s *Store) Watch(ctx context.Context, k key.Key, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	events := make(chan struct{}, 1)
	go func() {
		defer close(events)

		last, _ := s.fingerprintOf(k)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current, ok := s.fingerprintOf(k)
				if !ok || current == last {
					continue
				}
				last = current
				select {
				case events <- struct{}{}:
				default:
				}
			}
		}
	}()

	return events
}
