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

// Package limit provides a sliding-window attempt limiter with a lockout
// period. It is keyed by an arbitrary string, typically a token or identity.
package limit

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrInvalidConfig is returned when a limiter is created with a
	// non-positive window, attempt count or lockout.
	ErrInvalidConfig = errors.New("limiter config must be > 0")
)

// Config holds the limiter parameters.
type Config struct {
	// Window is the sliding period over which attempts are counted.
	Window time.Duration

	// MaxAttempts is the number of failed attempts allowed per window.
	MaxAttempts int

	// Lockout is how long a key stays blocked after exceeding the limit.
	Lockout time.Duration
}

// Limiter counts failed attempts per key over a sliding window. Once a key
// exceeds the limit it is locked out; further attempts during the lockout
// are rejected without being counted. A successful attempt clears the key.
type Limiter struct {
	mu sync.Mutex

	conf  Config
	keys  map[string]*keyState
	clock func() time.Time
}

type keyState struct {
	attempts    []time.Time
	lockedUntil time.Time
}

// NewLimiter creates a limiter with the given configuration.
func NewLimiter(conf Config) (*Limiter, error) {
	if conf.Window <= 0 || conf.MaxAttempts <= 0 || conf.Lockout <= 0 {
		return nil, ErrInvalidConfig
	}

	return &Limiter{
		conf:  conf,
		keys:  make(map[string]*keyState),
		clock: time.Now,
	}, nil
}

// Allow reports whether an attempt on the given key may proceed. When the
// key is locked out it returns false along with the remaining wait.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	state, ok := l.keys[key]
	if !ok {
		return true, 0
	}

	if now.Before(state.lockedUntil) {
		return false, state.lockedUntil.Sub(now)
	}

	l.expire(state, now)
	if len(state.attempts) >= l.conf.MaxAttempts {
		state.lockedUntil = now.Add(l.conf.Lockout)
		state.attempts = nil
		return false, l.conf.Lockout
	}
	return true, 0
}

// Fail records a failed attempt on the given key. When the attempt fills the
// window the key is locked out immediately.
func (l *Limiter) Fail(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	state, ok := l.keys[key]
	if !ok {
		state = &keyState{}
		l.keys[key] = state
	}
	if now.Before(state.lockedUntil) {
		return
	}

	l.expire(state, now)
	state.attempts = append(state.attempts, now)
	if len(state.attempts) >= l.conf.MaxAttempts {
		state.lockedUntil = now.Add(l.conf.Lockout)
		state.attempts = nil
	}
}

// Succeed clears the given key's attempt history and lockout.
func (l *Limiter) Succeed(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}

// expire drops attempts that slid out of the window. The caller holds the
// lock.
func (l *Limiter) expire(state *keyState, now time.Time) {
	cutoff := now.Add(-l.conf.Window)
	kept := state.attempts[:0]
	for _, at := range state.attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	state.attempts = kept
}
