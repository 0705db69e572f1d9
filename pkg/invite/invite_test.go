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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manuscript-team/manuscript/pkg/document"
	"github.com/manuscript-team/manuscript/pkg/document/key"
	"github.com/manuscript-team/manuscript/pkg/limit"
)

var sealKey = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	service *Service
	store   *Store
	now     time.Time
}

// newFixture builds a service over a fresh store with a controllable clock.
// The directory confirms everyone except "unconfirmed@example".
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "invites.db"), sealKey)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	limiter, err := limit.NewLimiter(limit.Config{
		Window:      time.Minute,
		MaxAttempts: 3,
		Lockout:     5 * time.Minute,
	})
	require.NoError(t, err)

	directory := DirectoryFunc(func(identity document.Identity) (bool, error) {
		return identity != "unconfirmed@example", nil
	})

	f := &fixture{
		service: NewService(store, directory, limiter),
		store:   store,
		now:     time.Unix(1700000000, 0),
	}
	f.service.now = func() time.Time { return f.now }
	return f
}

func TestInvitations(t *testing.T) {
	docKey := key.New()

	t.Run("confirmed recipient needs no code test", func(t *testing.T) {
		f := newFixture(t)

		invitation, err := f.service.CreateInvitation(docKey, "alice", "bob", document.RoleAuthor, 0)
		require.NoError(t, err)
		assert.Empty(t, invitation.VerificationCode)

		validation := f.service.ValidateInvitation(invitation.ID, "bob")
		assert.Equal(t, OutcomeValid, validation.Outcome)

		grant, err := f.service.AcceptInvitation(invitation.ID, "bob", "")
		require.NoError(t, err)
		assert.Equal(t, docKey, grant.DocumentKey)
		assert.Equal(t, document.RoleAuthor, grant.Role)
	})

	t.Run("unconfirmed recipient needs a code test", func(t *testing.T) {
		f := newFixture(t)

		invitation, err := f.service.CreateInvitation(docKey, "alice", "unconfirmed@example", document.RoleReviewer, 0)
		require.NoError(t, err)
		require.Len(t, invitation.VerificationCode, 6)

		validation := f.service.ValidateInvitation(invitation.ID, "unconfirmed@example")
		assert.Equal(t, OutcomeRequiresVerificationCode, validation.Outcome)

		_, err = f.service.AcceptInvitation(invitation.ID, "unconfirmed@example", "000000x")
		assert.ErrorIs(t, err, ErrInvalidVerificationCode)

		grant, err := f.service.AcceptInvitation(invitation.ID, "unconfirmed@example", invitation.VerificationCode)
		require.NoError(t, err)
		assert.Equal(t, document.RoleReviewer, grant.Role)
	})

	t.Run("expired invitation reports expiry, not a code problem test", func(t *testing.T) {
		f := newFixture(t)

		invitation, err := f.service.CreateInvitation(docKey, "alice", "unconfirmed@example", document.RoleAuthor, time.Hour)
		require.NoError(t, err)

		f.now = f.now.Add(2 * time.Hour)

		// Even with a wrong code the outcome is expiry.
		_, err = f.service.AcceptInvitation(invitation.ID, "unconfirmed@example", "wrong")
		assert.ErrorIs(t, err, ErrExpired)
		assert.NotErrorIs(t, err, ErrInvalidVerificationCode)

		validation := f.service.ValidateInvitation(invitation.ID, "unconfirmed@example")
		assert.Equal(t, OutcomeInvalid, validation.Outcome)
		assert.ErrorIs(t, validation.Reason, ErrExpired)
	})

	t.Run("wrong recipient test", func(t *testing.T) {
		f := newFixture(t)

		invitation, err := f.service.CreateInvitation(docKey, "alice", "bob", document.RoleAuthor, 0)
		require.NoError(t, err)

		_, err = f.service.AcceptInvitation(invitation.ID, "mallory", "")
		assert.ErrorIs(t, err, ErrWrongRecipient)
	})

	t.Run("revoked invitation test", func(t *testing.T) {
		f := newFixture(t)

		invitation, err := f.service.CreateInvitation(docKey, "alice", "bob", document.RoleAuthor, 0)
		require.NoError(t, err)

		assert.ErrorIs(t, f.service.RevokeInvitation(invitation.ID, "bob"), ErrNotPermitted)
		require.NoError(t, f.service.RevokeInvitation(invitation.ID, "alice"))

		_, err = f.service.AcceptInvitation(invitation.ID, "bob", "")
		assert.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("code attempts are rate limited test", func(t *testing.T) {
		f := newFixture(t)

		invitation, err := f.service.CreateInvitation(docKey, "alice", "unconfirmed@example", document.RoleAuthor, 0)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err = f.service.AcceptInvitation(invitation.ID, "unconfirmed@example", "badbad")
			assert.ErrorIs(t, err, ErrInvalidVerificationCode)
		}

		_, err = f.service.AcceptInvitation(invitation.ID, "unconfirmed@example", invitation.VerificationCode)
		require.ErrorIs(t, err, ErrRateLimited)

		var rateLimited *RateLimitedError
		require.ErrorAs(t, err, &rateLimited)
		assert.Equal(t, 5*time.Minute, rateLimited.RetryAfter)

		// The lockout gates validation probing too.
		validation := f.service.ValidateInvitation(invitation.ID, "unconfirmed@example")
		assert.Equal(t, OutcomeInvalid, validation.Outcome)
		assert.ErrorIs(t, validation.Reason, ErrRateLimited)
	})

	t.Run("unknown invitation test", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.AcceptInvitation("missing", "bob", "")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, OutcomeInvalid, f.service.ValidateInvitation("missing", "bob").Outcome)
	})
}

func TestSecureLinks(t *testing.T) {
	docKey := key.New()

	t.Run("open link test", func(t *testing.T) {
		f := newFixture(t)

		link, err := f.service.CreateSecureLink(docKey, "alice", document.RoleReviewer, "", 0, 0)
		require.NoError(t, err)
		assert.NotEmpty(t, link.Token)

		validation := f.service.ValidateLink(link.Token)
		assert.Equal(t, OutcomeValid, validation.Outcome)

		grant, err := f.service.RedeemLink(link.Token, "anyone", "")
		require.NoError(t, err)
		assert.Equal(t, document.RoleReviewer, grant.Role)
	})

	t.Run("password protected link test", func(t *testing.T) {
		f := newFixture(t)

		link, err := f.service.CreateSecureLink(docKey, "alice", document.RoleReviewer, "hunter2", 0, 0)
		require.NoError(t, err)

		validation := f.service.ValidateLink(link.Token)
		assert.Equal(t, OutcomeRequiresPassword, validation.Outcome)

		_, err = f.service.RedeemLink(link.Token, "anyone", "wrong")
		assert.ErrorIs(t, err, ErrInvalidPassword)

		_, err = f.service.RedeemLink(link.Token, "anyone", "hunter2")
		require.NoError(t, err)
	})

	t.Run("password attempts are rate limited test", func(t *testing.T) {
		f := newFixture(t)

		link, err := f.service.CreateSecureLink(docKey, "alice", document.RoleReviewer, "hunter2", 0, 0)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err = f.service.RedeemLink(link.Token, "anyone", "wrong")
			assert.ErrorIs(t, err, ErrInvalidPassword)
		}

		_, err = f.service.RedeemLink(link.Token, "anyone", "hunter2")
		require.ErrorIs(t, err, ErrRateLimited)

		validation := f.service.ValidateLink(link.Token)
		assert.Equal(t, OutcomeInvalid, validation.Outcome)
		assert.ErrorIs(t, validation.Reason, ErrRateLimited)
	})

	t.Run("single view link is consumed test", func(t *testing.T) {
		f := newFixture(t)

		link, err := f.service.CreateSecureLink(docKey, "alice", document.RoleReviewer, "", 1, 0)
		require.NoError(t, err)

		_, err = f.service.RedeemLink(link.Token, "first", "")
		require.NoError(t, err)

		_, err = f.service.RedeemLink(link.Token, "second", "")
		assert.ErrorIs(t, err, ErrMaxViewsExceeded)

		validation := f.service.ValidateLink(link.Token)
		assert.Equal(t, OutcomeInvalid, validation.Outcome)
		assert.ErrorIs(t, validation.Reason, ErrMaxViewsExceeded)
	})

	t.Run("expired link test", func(t *testing.T) {
		f := newFixture(t)

		link, err := f.service.CreateSecureLink(docKey, "alice", document.RoleReviewer, "", 0, time.Hour)
		require.NoError(t, err)

		f.now = f.now.Add(2 * time.Hour)
		_, err = f.service.RedeemLink(link.Token, "late", "")
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("revoked link test", func(t *testing.T) {
		f := newFixture(t)

		link, err := f.service.CreateSecureLink(docKey, "alice", document.RoleReviewer, "", 0, 0)
		require.NoError(t, err)

		require.NoError(t, f.service.RevokeLink(link.Token, "alice"))
		_, err = f.service.RedeemLink(link.Token, "anyone", "")
		assert.ErrorIs(t, err, ErrRevoked)
	})
}

func TestStoreSealing(t *testing.T) {
	t.Run("records round trip sealed test", func(t *testing.T) {
		f := newFixture(t)
		docKey := key.New()

		invitation, err := f.service.CreateInvitation(docKey, "alice", "bob", document.RoleAuthor, 0)
		require.NoError(t, err)

		loaded, err := f.store.GetInvitation(invitation.ID)
		require.NoError(t, err)
		assert.Equal(t, invitation.Recipient, loaded.Recipient)
		assert.Equal(t, invitation.ExpiresAt.Unix(), loaded.ExpiresAt.Unix())
	})

	t.Run("wrong seal key fails closed test", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "invites.db")

		store, err := NewStore(path, sealKey)
		require.NoError(t, err)
		require.NoError(t, store.PutInvitation(&Invitation{ID: "inv1", Recipient: "bob"}))
		require.NoError(t, store.Close())

		otherKey := []byte("ffffffffffffffffffffffffffffffff")
		reopened, err := NewStore(path, otherKey)
		require.NoError(t, err)
		defer reopened.Close()

		_, err = reopened.GetInvitation("inv1")
		assert.ErrorIs(t, err, ErrStoreSealed)
	})
}

func TestPassword(t *testing.T) {
	t.Run("hash round trip test", func(t *testing.T) {
		hash, err := hashPassword("correct horse battery staple")
		require.NoError(t, err)

		ok, err := verifyPassword(hash, "correct horse battery staple")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = verifyPassword(hash, "wrong")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed hash test", func(t *testing.T) {
		_, err := verifyPassword("not-a-hash", "x")
		assert.ErrorIs(t, err, errMalformedHash)
	})
}
