package crypto

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformedState = errors.New("malformed state")
	ErrStateExpired   = errors.New("state expired")
	ErrStateSignature = errors.New("invalid state signature")
)

// StateSigner issues self-contained OAuth state values of the form
// nonce.timestamp.signature. Nothing is kept server side; a state is valid
// while its HMAC checks out and it is younger than ttl.
type StateSigner struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

// NewStateSigner creates a signer with the given HMAC key and lifetime.
func NewStateSigner(signingKey []byte, ttl time.Duration) *StateSigner {
	return &StateSigner{
		signingKey: signingKey,
		ttl:        ttl,
		now:        time.Now,
	}
}

// TTL returns how long issued states stay valid.
func (s *StateSigner) TTL() time.Duration {
	return s.ttl
}

// Generate creates a new signed state value.
func (s *StateSigner) Generate() (string, error) {
	nonce, err := GenerateSecureToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	data := nonce + "." + timestamp
	return data + "." + SignData(data, s.signingKey), nil
}

// Validate checks the signature and age of a state value.
func (s *StateSigner) Validate(state string) error {
	parts := strings.Split(state, ".")
	if len(parts) != 3 || parts[0] == "" {
		return ErrMalformedState
	}

	timestamp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return ErrMalformedState
	}

	data := parts[0] + "." + parts[1]
	if !ValidateSignedData(data, parts[2], s.signingKey) {
		return ErrStateSignature
	}

	if s.now().Sub(time.Unix(timestamp, 0)) > s.ttl {
		return ErrStateExpired
	}
	return nil
}
