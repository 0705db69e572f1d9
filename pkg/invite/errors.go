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

package invite

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no invitation or link exists for the
	// given identifier.
	ErrNotFound = errors.New("invitation not found")

	// ErrExpired is returned when the invitation or link has passed its
	// expiry. Expiry is checked before anything else, so an expired
	// invitation never reports a code or password problem.
	ErrExpired = errors.New("invitation expired")

	// ErrRevoked is returned when the invitation or link was revoked.
	ErrRevoked = errors.New("invitation revoked")

	// ErrWrongRecipient is returned when an identified invitation is
	// accepted by an identity other than its recipient.
	ErrWrongRecipient = errors.New("invitation addressed to someone else")

	// ErrInvalidVerificationCode is returned when the presented code does
	// not match the invitation's.
	ErrInvalidVerificationCode = errors.New("invalid verification code")

	// ErrInvalidPassword is returned when the presented password does not
	// match the link's.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrMaxViewsExceeded is returned when a link's view quota is used up.
	ErrMaxViewsExceeded = errors.New("link view quota exceeded")

	// ErrRateLimited is the sentinel matched by RateLimitedError.
	ErrRateLimited = errors.New("too many attempts")

	// ErrNotPermitted is returned when the acting identity may not manage
	// the invitation.
	ErrNotPermitted = errors.New("not permitted")

	// ErrStoreSealed is returned when a stored record cannot be decrypted.
	// The record is treated as nonexistent rather than trusted.
	ErrStoreSealed = errors.New("sealed record cannot be opened")
)

// RateLimitedError reports that attempts are blocked and for how long.
type RateLimitedError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %s", e.RetryAfter)
}

// Is matches RateLimitedError against ErrRateLimited.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
