package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// KeyPair is a NaCl crypto_box key pair (Curve25519). The same type backs
// both a peer's long-term identity key and the ephemeral, single-use key
// generated for each envelope; callers that generate an ephemeral pair are
// responsible for discarding its private half via WipeKeyPair once the
// envelope is sealed.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateKeyPair creates a new random NaCl key pair, drawing entropy from
// crypto/rand. It is used both to mint a client's long-term identity on
// first run and to mint the ephemeral key Seal attaches to each envelope.
func GenerateKeyPair() (*KeyPair, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "GenerateKeyPair",
		"package":  "crypto",
	})

	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		logger.WithError(err).Error("key pair generation failed")
		return nil, fmt.Errorf("crypto: generate key pair: %w", err)
	}

	keyPair := &KeyPair{Public: *publicKey, Private: *privateKey}

	logger.WithField("public_key_preview", fmt.Sprintf("%x", keyPair.Public[:8])).
		Debug("key pair generated")

	return keyPair, nil
}

// FromSecretKey rebuilds a KeyPair from a known 32-byte private key,
// deriving the matching public key via scalar multiplication on
// Curve25519. This is how a client reloads its long-term identity from a
// persisted private key without re-deriving or storing the public half
// separately.
func FromSecretKey(secretKey [32]byte) (*KeyPair, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "FromSecretKey",
		"package":  "crypto",
	})

	if isZeroKey(secretKey) {
		logger.Error("refusing to derive a key pair from an all-zero secret key")
		return nil, errors.New("crypto: invalid secret key: all zeros")
	}

	var clamped [32]byte
	copy(clamped[:], secretKey[:])
	clamped[0] &= 248
	clamped[31] &= 127
	clamped[31] |= 64

	var publicKey [32]byte
	curve25519.ScalarBaseMult(&publicKey, &clamped)
	ZeroBytes(clamped[:])

	logger.WithField("public_key_preview", fmt.Sprintf("%x", publicKey[:8])).
		Debug("key pair derived from existing secret key")

	return &KeyPair{Public: publicKey, Private: secretKey}, nil
}

// isZeroKey reports whether key is all zero bytes, the one private key
// value that can never correspond to a usable Curve25519 key pair.
func isZeroKey(key [32]byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
