package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealPrefix = "sb1:"
	keySize    = 32
	nonceSize  = 24
)

// ErrUnseal is returned when a sealed bundle cannot be opened with the configured key
var ErrUnseal = errors.New("failed to unseal cookie bundle")

// Sealer encrypts cookie bundles at rest with NaCl secretbox
type Sealer struct {
	key [keySize]byte
}

// NewSealer creates a sealer from a base64 encoded 32 byte key
func NewSealer(encodedKey string) (*Sealer, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedKey))
	if err != nil {
		return nil, fmt.Errorf("seal key is not valid base64: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("seal key must be %d bytes, got %d", keySize, len(raw))
	}
	s := &Sealer{}
	copy(s.key[:], raw)
	return s, nil
}

// Seal encrypts plaintext into the "sb1:" text form
func (s *Sealer) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return sealPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts a sealed value. Values without the prefix are returned unchanged.
func (s *Sealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, sealPrefix) {
		return value, nil
	}
	box, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnseal, err)
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%w: value too short", ErrUnseal)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])

	plaintext, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", fmt.Errorf("%w: authentication failed", ErrUnseal)
	}
	return string(plaintext), nil
}

// Backend is the shape every session store shares
type Backend interface {
	Get(ctx context.Context, userID string) (Session, error)
	Upsert(ctx context.Context, userID, bundle string) error
	Deactivate(ctx context.Context, userID string) error
}

// SealedStore seals bundles before they reach the inner store
type SealedStore struct {
	inner  Backend
	sealer *Sealer
}

// Sealed wraps inner so bundles are encrypted at rest
func Sealed(inner Backend, sealer *Sealer) *SealedStore {
	return &SealedStore{inner: inner, sealer: sealer}
}

func (s *SealedStore) Get(ctx context.Context, userID string) (Session, error) {
	session, err := s.inner.Get(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	bundle, err := s.sealer.Open(session.Bundle)
	if err != nil {
		return Session{}, err
	}
	session.Bundle = bundle
	return session, nil
}

func (s *SealedStore) Upsert(ctx context.Context, userID, bundle string) error {
	sealed, err := s.sealer.Seal(bundle)
	if err != nil {
		return err
	}
	return s.inner.Upsert(ctx, userID, sealed)
}

func (s *SealedStore) Deactivate(ctx context.Context, userID string) error {
	return s.inner.Deactivate(ctx, userID)
}
