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

package limit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*Limiter, *time.Time) {
	t.Helper()

	limiter, err := NewLimiter(Config{
		Window:      time.Minute,
		MaxAttempts: 3,
		Lockout:     5 * time.Minute,
	})
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	limiter.clock = func() time.Time { return now }
	return limiter, &now
}

func TestLimiter(t *testing.T) {
	t.Run("invalid config test", func(t *testing.T) {
		_, err := NewLimiter(Config{Window: 0, MaxAttempts: 3, Lockout: time.Minute})
		assert.ErrorIs(t, err, ErrInvalidConfig)
		_, err = NewLimiter(Config{Window: time.Minute, MaxAttempts: 0, Lockout: time.Minute})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("attempts below the limit pass test", func(t *testing.T) {
		limiter, _ := newTestLimiter(t)

		for i := 0; i < 2; i++ {
			ok, _ := limiter.Allow("key")
			assert.True(t, ok)
			limiter.Fail("key")
		}
		ok, _ := limiter.Allow("key")
		assert.True(t, ok)
	})

	t.Run("filling the window locks out test", func(t *testing.T) {
		limiter, _ := newTestLimiter(t)

		for i := 0; i < 3; i++ {
			limiter.Fail("key")
		}

		ok, retryAfter := limiter.Allow("key")
		assert.False(t, ok)
		assert.Equal(t, 5*time.Minute, retryAfter)
	})

	t.Run("lockout expires test", func(t *testing.T) {
		limiter, now := newTestLimiter(t)

		for i := 0; i < 3; i++ {
			limiter.Fail("key")
		}
		ok, _ := limiter.Allow("key")
		require.False(t, ok)

		*now = now.Add(5*time.Minute + time.Second)
		ok, _ = limiter.Allow("key")
		assert.True(t, ok)
	})

	t.Run("attempts slide out of the window test", func(t *testing.T) {
		limiter, now := newTestLimiter(t)

		limiter.Fail("key")
		limiter.Fail("key")
		*now = now.Add(61 * time.Second)
		limiter.Fail("key")

		ok, _ := limiter.Allow("key")
		assert.True(t, ok)
	})

	t.Run("success clears the key test", func(t *testing.T) {
		limiter, _ := newTestLimiter(t)

		limiter.Fail("key")
		limiter.Fail("key")
		limiter.Succeed("key")

		limiter.Fail("key")
		limiter.Fail("key")
		ok, _ := limiter.Allow("key")
		assert.True(t, ok)
	})

	t.Run("keys are independent test", func(t *testing.T) {
		limiter, _ := newTestLimiter(t)

		for i := 0; i < 3; i++ {
			limiter.Fail("hot")
		}
		ok, _ := limiter.Allow("hot")
		require.False(t, ok)

		ok, _ = limiter.Allow("cold")
		assert.True(t, ok)
	})
}
