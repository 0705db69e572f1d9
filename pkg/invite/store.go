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
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketInvitations = []byte("invitations")
	bucketLinks       = []byte("links")
)

// Store persists invitations and secure links in a bbolt database. Records
// are sealed with AES-GCM before they touch disk; the nonce is prefixed to
// each ciphertext. A record that fails to open is treated as nonexistent,
// never as plaintext.
type Store struct {
	db   *bolt.DB
	aead cipher.AEAD
}

// NewStore opens the database at the given path, sealing records with the
// given 16, 24 or 32 byte key.
func NewStore(path string, sealKey []byte) (*Store, error) {
	block, err := aes.NewCipher(sealKey)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open invite store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketInvitations); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketLinks)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{db: db, aead: aead}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// seal encrypts plaintext and prefixes the nonce.
func (s *Store) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts a nonce-prefixed ciphertext.
func (s *Store) open(sealed []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrStoreSealed
	}
	plaintext, err := s.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrStoreSealed)
	}
	return plaintext, nil
}

func (s *Store) put(bucket []byte, id string, record any) error {
	plaintext, err := json.Marshal(record)
	if err != nil {
		return err
	}
	sealed, err := s.seal(plaintext)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(id), sealed)
	})
}

func (s *Store) get(bucket []byte, id string, record any) error {
	var sealed []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(bucket).Get([]byte(id))
		if value == nil {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		sealed = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return err
	}

	plaintext, err := s.open(sealed)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, record)
}

func (s *Store) delete(bucket []byte, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(id))
	})
}

// PutInvitation stores the invitation.
func (s *Store) PutInvitation(invitation *Invitation) error {
	return s.put(bucketInvitations, invitation.ID, invitation)
}

// GetInvitation loads the invitation with the given ID.
func (s *Store) GetInvitation(id string) (*Invitation, error) {
	invitation := &Invitation{}
	if err := s.get(bucketInvitations, id, invitation); err != nil {
		return nil, err
	}
	return invitation, nil
}

// DeleteInvitation removes the invitation with the given ID.
func (s *Store) DeleteInvitation(id string) error {
	return s.delete(bucketInvitations, id)
}

// PutLink stores the secure link.
func (s *Store) PutLink(link *SecureLink) error {
	return s.put(bucketLinks, link.Token, link)
}

// GetLink loads the secure link with the given token.
func (s *Store) GetLink(token string) (*SecureLink, error) {
	link := &SecureLink{}
	if err := s.get(bucketLinks, token, link); err != nil {
		return nil, err
	}
	return link, nil
}

// DeleteLink removes the secure link with the given token.
func (s *Store) DeleteLink(token string) error {
	return s.delete(bucketLinks, token)
}
