package wallet

import (
	"errors"
	"fmt"

	"qxtrade/pkg/qx"
)

// Signer turns an unsigned exchange transaction into the encoded,
// signed package the ledger accepts. Key handling, the signature scheme
// and the binary layout live in an external crypto module behind this
// interface.
type Signer interface {
	SignOrder(seed string, tx qx.UnsignedTransaction) (qx.SignedTransaction, error)
}

// KeyDeriver maps a secret seed phrase to its public account identity.
type KeyDeriver interface {
	DeriveIdentity(seed string) (string, error)
}

var ErrNoSession = errors.New("wallet: no active session")

// SigningError wraps whatever the external signer reports. A signing
// failure is fatal to that submission attempt and never retried.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string { return fmt.Sprintf("wallet: signing failed: %v", e.Err) }
func (e *SigningError) Unwrap() error { return e.Err }

// Session is the active account: the public identity plus the seed it
// was derived from. It is created at login, zeroed at logout, and is
// the only component allowed to request signatures. Holding the
// identity is not a security boundary; the seed is what authorizes a
// transaction at signing time.
type Session struct {
	identity string
	seed     string
}

// Login derives the account identity from the seed and opens a session.
func Login(kd KeyDeriver, seed string) (*Session, error) {
	identity, err := kd.DeriveIdentity(seed)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive identity: %w", err)
	}
	return &Session{identity: identity, seed: seed}, nil
}

// Watch opens a watch-only session for a known identity. Read paths
// work normally; signing fails with ErrNoSession because there is no
// seed to sign with.
func Watch(identity string) *Session {
	return &Session{identity: identity}
}

// Identity returns the public account identifier.
func (s *Session) Identity() string {
	if s == nil {
		return ""
	}
	return s.identity
}

// Sign asks the external signer to sign tx with this session's seed.
func (s *Session) Sign(signer Signer, tx qx.UnsignedTransaction) (qx.SignedTransaction, error) {
	if s == nil || s.seed == "" {
		return qx.SignedTransaction{}, ErrNoSession
	}
	signed, err := signer.SignOrder(s.seed, tx)
	if err != nil {
		return qx.SignedTransaction{}, &SigningError{Err: err}
	}
	return signed, nil
}

// Close wipes the seed. The session is unusable afterwards.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.seed = ""
	s.identity = ""
}
