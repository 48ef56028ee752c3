package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// Nonce is the 24-byte value NaCl box/secretbox require for a single
// encryption operation. Envelope sealing generates a fresh one per message;
// reusing a nonce with the same key breaks the authentication guarantee,
// so a nonce may be stored alongside the ciphertext it sealed but must never
// be used to seal a second message.
type Nonce [24]byte

// GenerateNonce returns a cryptographically random Nonce.
func GenerateNonce() (Nonce, error) {
	var nonce Nonce
	if _, err := rand.Read(nonce[:]); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "GenerateNonce",
			"package":  "crypto",
		}).WithError(err).Error("failed to read random bytes for nonce")
		return Nonce{}, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	return nonce, nil
}

// MaxMessageSize bounds the plaintext Encrypt/EncryptSymmetric will accept,
// guarding against a caller accidentally trying to seal an unbounded stream
// as a single relay message.
const MaxMessageSize = 1024 * 1024

// Encrypt performs the authenticated box seal that Seal uses to build an
// envelope's ciphertext: recipientPK authenticates who can open it, senderSK
// authenticates who sent it (for an envelope, senderSK is the ephemeral
// per-message private key, not the sender's long-term key).
func Encrypt(message []byte, nonce Nonce, recipientPK [32]byte, senderSK [32]byte) ([]byte, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function":      "Encrypt",
		"package":       "crypto",
		"message_size":  len(message),
		"recipient_key": fmt.Sprintf("%x", recipientPK[:8]),
	})

	if len(message) == 0 {
		return nil, errors.New("crypto: empty message")
	}
	if len(message) > MaxMessageSize {
		logger.WithField("max_size", MaxMessageSize).Error("message exceeds maximum allowed size")
		return nil, errors.New("crypto: message too large")
	}

	sealed := box.Seal(nil, message, (*[24]byte)(&nonce), (*[32]byte)(&recipientPK), (*[32]byte)(&senderSK))

	out := make([]byte, len(sealed))
	copy(out, sealed)

	logger.WithFields(SecureFieldHash(out, "ciphertext")).Debug("message sealed with nacl box")
	return out, nil
}

// EncryptSymmetric seals message under a shared key with NaCl secretbox.
// The relay itself never uses this - every stored envelope is addressed to
// a specific recipient via Encrypt - but it backs any component that needs
// to protect data under a single known key: the conversation package uses
// it to seal chat history at rest under the local identity's private key.
func EncryptSymmetric(message []byte, nonce Nonce, key [32]byte) ([]byte, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function":     "EncryptSymmetric",
		"package":      "crypto",
		"message_size": len(message),
	})

	if len(message) == 0 {
		return nil, errors.New("crypto: empty message")
	}
	if len(message) > MaxMessageSize {
		logger.WithField("max_size", MaxMessageSize).Error("message exceeds maximum allowed size")
		return nil, errors.New("crypto: message too large")
	}

	var keyCopy [32]byte
	copy(keyCopy[:], key[:])
	defer ZeroBytes(keyCopy[:])

	sealed := secretbox.Seal(nil, message, (*[24]byte)(&nonce), (*[32]byte)(&keyCopy))

	out := make([]byte, len(sealed))
	copy(out, sealed)

	logger.WithFields(SecureFieldHash(out, "ciphertext")).Debug("message sealed with nacl secretbox")
	return out, nil
}
