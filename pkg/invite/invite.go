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

// Package invite grants access to documents. Two grant shapes exist:
// identified invitations addressed to a known recipient, optionally guarded
// by a verification code, and secure links that anyone holding the token can
// redeem, optionally guarded by a password and a view quota. Validation has
// a closed set of outcomes so callers cannot misread a failure as success.
package invite

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/xid"

	"github.com/manuscript-team/manuscript/internal/logging"
	"github.com/manuscript-team/manuscript/pkg/document"
	"github.com/manuscript-team/manuscript/pkg/document/key"
	"github.com/manuscript-team/manuscript/pkg/limit"
)

const (
	// DefaultTTL is the invitation lifetime unless one is given.
	DefaultTTL = 7 * 24 * time.Hour

	// tokenBytes is the entropy of a secure link token.
	tokenBytes = 32

	// codeDigits is the length of a verification code.
	codeDigits = 6
)

// Outcome is the closed result set of validating a grant.
type Outcome int

const (
	// OutcomeInvalid means the grant cannot be used. Reason says why.
	OutcomeInvalid Outcome = iota

	// OutcomeValid means the grant can be accepted as is.
	OutcomeValid

	// OutcomeRequiresVerificationCode means the recipient must present the
	// verification code to accept.
	OutcomeRequiresVerificationCode

	// OutcomeRequiresPassword means the link needs its password to redeem.
	OutcomeRequiresPassword
)

// Validation is the result of validating an invitation or link.
type Validation struct {
	Outcome Outcome

	// Reason is set when the outcome is OutcomeInvalid.
	Reason error
}

// Invitation is an identified grant addressed to one recipient.
type Invitation struct {
	ID          string            `json:"id"`
	DocumentKey key.Key           `json:"document_key"`
	Inviter     document.Identity `json:"inviter"`
	Recipient   document.Identity `json:"recipient"`
	Role        document.Role     `json:"role"`

	// VerificationCode is set when the recipient could not be confirmed
	// through the identity directory. Accepting then requires the code,
	// delivered to the recipient out of band.
	VerificationCode string `json:"verification_code,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	AcceptedAt time.Time `json:"accepted_at,omitempty"`
	Revoked    bool      `json:"revoked"`
}

// SecureLink is an anonymous grant carried by an unguessable token.
type SecureLink struct {
	Token       string            `json:"token"`
	DocumentKey key.Key           `json:"document_key"`
	Creator     document.Identity `json:"creator"`
	Role        document.Role     `json:"role"`

	// PasswordHash guards redemption when set.
	PasswordHash string `json:"password_hash,omitempty"`

	// MaxViews caps redemptions; zero means unlimited.
	MaxViews int `json:"max_views"`
	Views    int `json:"views"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// Grant is what a successful acceptance or redemption yields.
type Grant struct {
	DocumentKey key.Key
	Identity    document.Identity
	Role        document.Role
}

// Directory answers whether an identity is known and confirmed. Invitations
// to unconfirmed identities get a verification code.
type Directory interface {
	Confirmed(identity document.Identity) (bool, error)
}

// DirectoryFunc adapts a function to the Directory interface.
type DirectoryFunc func(identity document.Identity) (bool, error)

// Confirmed calls the wrapped function.
func (f DirectoryFunc) Confirmed(identity document.Identity) (bool, error) {
	return f(identity)
}

// Service manages the lifecycle of invitations and secure links.
type Service struct {
	store     *Store
	directory Directory
	limiter   *limit.Limiter
	logger    logging.Logger
	now       func() time.Time
}

// NewService creates an invitation service. A nil directory confirms every
// identity.
func NewService(store *Store, directory Directory, limiter *limit.Limiter) *Service {
	if directory == nil {
		directory = DirectoryFunc(func(document.Identity) (bool, error) { return true, nil })
	}
	return &Service{
		store:     store,
		directory: directory,
		limiter:   limiter,
		logger:    logging.New("invite"),
		now:       time.Now,
	}
}

// CreateInvitation issues an identified invitation. When the recipient is
// not confirmed by the directory, a verification code is attached and must
// be delivered out of band.
func (s *Service) CreateInvitation(
	k key.Key,
	inviter, recipient document.Identity,
	role document.Role,
	ttl time.Duration,
) (*Invitation, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	confirmed, err := s.directory.Confirmed(recipient)
	if err != nil {
		return nil, fmt.Errorf("confirm recipient: %w", err)
	}

	invitation := &Invitation{
		ID:          xid.New().String(),
		DocumentKey: k,
		Inviter:     inviter,
		Recipient:   recipient,
		Role:        role,
		CreatedAt:   s.now(),
		ExpiresAt:   s.now().Add(ttl),
	}
	if !confirmed {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		invitation.VerificationCode = code
	}

	if err := s.store.PutInvitation(invitation); err != nil {
		return nil, err
	}
	s.logger.Infof("invitation %s for %s to %s", invitation.ID, recipient, k)
	return invitation, nil
}

// ValidateInvitation checks whether the invitation can be accepted by the
// given identity, without accepting it. A lockout earned through failed
// accept attempts gates validation too, so a locked-out secret cannot be
// probed through this path.
func (s *Service) ValidateInvitation(id string, recipient document.Identity) Validation {
	if allowed, retryAfter := s.limiter.Allow("invitation:" + id); !allowed {
		return Validation{Outcome: OutcomeInvalid, Reason: &RateLimitedError{RetryAfter: retryAfter}}
	}

	invitation, err := s.store.GetInvitation(id)
	if err != nil {
		return Validation{Outcome: OutcomeInvalid, Reason: invalidReason(err)}
	}

	if reason := s.usableInvitation(invitation, recipient); reason != nil {
		return Validation{Outcome: OutcomeInvalid, Reason: reason}
	}
	if invitation.VerificationCode != "" {
		return Validation{Outcome: OutcomeRequiresVerificationCode}
	}
	return Validation{Outcome: OutcomeValid}
}

// AcceptInvitation accepts the invitation on behalf of the recipient. The
// code may be empty when the invitation carries none. Failed code attempts
// are rate limited per invitation.
func (s *Service) AcceptInvitation(id string, recipient document.Identity, code string) (*Grant, error) {
	if allowed, retryAfter := s.limiter.Allow("invitation:" + id); !allowed {
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}

	invitation, err := s.store.GetInvitation(id)
	if err != nil {
		return nil, err
	}

	// Expiry and revocation are decided before the code so an expired
	// invitation never reads as a wrong code.
	if reason := s.usableInvitation(invitation, recipient); reason != nil {
		return nil, reason
	}
	if invitation.VerificationCode != "" &&
		subtle.ConstantTimeCompare([]byte(invitation.VerificationCode), []byte(code)) != 1 {
		s.limiter.Fail("invitation:" + id)
		return nil, ErrInvalidVerificationCode
	}

	invitation.AcceptedAt = s.now()
	if err := s.store.PutInvitation(invitation); err != nil {
		return nil, err
	}
	s.limiter.Succeed("invitation:" + id)

	return &Grant{
		DocumentKey: invitation.DocumentKey,
		Identity:    recipient,
		Role:        invitation.Role,
	}, nil
}

// RevokeInvitation revokes the invitation. Only the inviter may revoke.
func (s *Service) RevokeInvitation(id string, acting document.Identity) error {
	invitation, err := s.store.GetInvitation(id)
	if err != nil {
		return err
	}
	if invitation.Inviter != acting {
		return ErrNotPermitted
	}

	invitation.Revoked = true
	return s.store.PutInvitation(invitation)
}

// usableInvitation returns why the invitation cannot be used, or nil.
func (s *Service) usableInvitation(invitation *Invitation, recipient document.Identity) error {
	if invitation.Revoked {
		return ErrRevoked
	}
	if s.now().After(invitation.ExpiresAt) {
		return ErrExpired
	}
	if invitation.Recipient != recipient {
		return ErrWrongRecipient
	}
	return nil
}

// CreateSecureLink issues a link grant. An empty password leaves the link
// open to anyone holding the token; maxViews of zero means unlimited.
func (s *Service) CreateSecureLink(
	k key.Key,
	creator document.Identity,
	role document.Role,
	password string,
	maxViews int,
	ttl time.Duration,
) (*SecureLink, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	link := &SecureLink{
		Token:       token,
		DocumentKey: k,
		Creator:     creator,
		Role:        role,
		MaxViews:    maxViews,
		CreatedAt:   s.now(),
		ExpiresAt:   s.now().Add(ttl),
	}
	if password != "" {
		hash, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		link.PasswordHash = hash
	}

	if err := s.store.PutLink(link); err != nil {
		return nil, err
	}
	s.logger.Infof("secure link for %s, max views %d", k, maxViews)
	return link, nil
}

// ValidateLink checks whether the link can be redeemed, without redeeming. A
// lockout earned through failed redemptions gates validation too.
func (s *Service) ValidateLink(token string) Validation {
	if allowed, retryAfter := s.limiter.Allow("link:" + token); !allowed {
		return Validation{Outcome: OutcomeInvalid, Reason: &RateLimitedError{RetryAfter: retryAfter}}
	}

	link, err := s.store.GetLink(token)
	if err != nil {
		return Validation{Outcome: OutcomeInvalid, Reason: invalidReason(err)}
	}

	if reason := s.usableLink(link); reason != nil {
		return Validation{Outcome: OutcomeInvalid, Reason: reason}
	}
	if link.PasswordHash != "" {
		return Validation{Outcome: OutcomeRequiresPassword}
	}
	return Validation{Outcome: OutcomeValid}
}

// RedeemLink consumes one view of the link on behalf of the identity. Failed
// password attempts are rate limited per token.
func (s *Service) RedeemLink(token string, identity document.Identity, password string) (*Grant, error) {
	if allowed, retryAfter := s.limiter.Allow("link:" + token); !allowed {
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}

	link, err := s.store.GetLink(token)
	if err != nil {
		return nil, err
	}
	if reason := s.usableLink(link); reason != nil {
		return nil, reason
	}

	if link.PasswordHash != "" {
		ok, err := verifyPassword(link.PasswordHash, password)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.limiter.Fail("link:" + token)
			return nil, ErrInvalidPassword
		}
	}

	link.Views++
	if err := s.store.PutLink(link); err != nil {
		return nil, err
	}
	s.limiter.Succeed("link:" + token)

	return &Grant{
		DocumentKey: link.DocumentKey,
		Identity:    identity,
		Role:        link.Role,
	}, nil
}

// RevokeLink revokes the link. Only its creator may revoke.
func (s *Service) RevokeLink(token string, acting document.Identity) error {
	link, err := s.store.GetLink(token)
	if err != nil {
		return err
	}
	if link.Creator != acting {
		return ErrNotPermitted
	}

	link.Revoked = true
	return s.store.PutLink(link)
}

// usableLink returns why the link cannot be redeemed, or nil.
func (s *Service) usableLink(link *SecureLink) error {
	if link.Revoked {
		return ErrRevoked
	}
	if s.now().After(link.ExpiresAt) {
		return ErrExpired
	}
	if link.MaxViews > 0 && link.Views >= link.MaxViews {
		return ErrMaxViewsExceeded
	}
	return nil
}

// invalidReason normalizes store errors into validation reasons.
func invalidReason(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreSealed) {
		return ErrNotFound
	}
	return err
}

// generateToken returns an unguessable URL-safe token.
func generateToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// generateCode returns a fixed-length numeric verification code.
func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
