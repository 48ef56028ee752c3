package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrInvalidKey is returned when a supplied public or private key is not
// usable (wrong length, all-zero, etc).
var ErrInvalidKey = errors.New("crypto: invalid key")

// ErrDecryptionFailed is returned when an envelope cannot be opened with the
// given private key, either because it was addressed to someone else or
// because it was tampered with in transit.
var ErrDecryptionFailed = errors.New("crypto: envelope decryption failed")

// innerSeparator divides the embedded sender identity from the message body
// inside the plaintext that travels inside an Envelope.
const innerSeparator = "|"

// Envelope is the sealed unit a client hands to the relay and the relay
// hands back on poll/consume. None of its fields reveal anything about the
// plaintext or the identity of the recipient beyond the opaque routing
// token; only someone holding the recipient's private key can open it.
type Envelope struct {
	Token        string
	Ciphertext   []byte
	Nonce        Nonce
	SenderPublic [32]byte
	TTLSeconds   int
}

// DeriveToken computes the anonymous routing token for a recipient's
// long-term public key. The relay indexes stored envelopes by this token
// and never learns the public key itself.
func DeriveToken(pub [32]byte) string {
	sum := sha256.Sum256(pub[:])
	return hex.EncodeToString(sum[:])
}

// Seal encrypts plaintext for recipientPub using a fresh ephemeral key pair
// and returns the Envelope ready to hand to a relay. selfPub is the sender's
// long-term public key; it travels inside the encrypted payload (not in the
// envelope metadata) so that only the recipient, after decryption, learns
// who sent the message.
//
// A new ephemeral key pair is generated per call, giving each message its
// own forward-secret key: compromise of one message's ephemeral private key
// does not expose any other message.
func Seal(recipientPub [32]byte, selfPub [32]byte, plaintext []byte, ttlSeconds int) (*Envelope, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "Seal",
		"package":  "crypto",
	})

	if isZeroKey(recipientPub) {
		logger.Error("Seal failed: zero recipient public key")
		return nil, ErrInvalidKey
	}

	ephemeral, err := GenerateKeyPair()
	if err != nil {
		logger.WithError(err).Error("Seal failed: could not generate ephemeral key pair")
		return nil, err
	}
	defer ZeroBytes(ephemeral.Private[:])

	inner := make([]byte, 0, 64+1+len(plaintext))
	inner = append(inner, []byte(hex.EncodeToString(selfPub[:]))...)
	inner = append(inner, innerSeparator...)
	inner = append(inner, plaintext...)

	nonce, err := GenerateNonce()
	if err != nil {
		logger.WithError(err).Error("Seal failed: could not generate nonce")
		return nil, err
	}

	ciphertext, err := Encrypt(inner, nonce, recipientPub, ephemeral.Private)
	if err != nil {
		logger.WithError(err).Error("Seal failed: encryption error")
		return nil, err
	}

	logger.WithFields(EnvelopeFields(DeriveToken(recipientPub), ciphertext, "ciphertext")).
		WithField("ttl_seconds", ttlSeconds).
		Debug("envelope sealed")

	return &Envelope{
		Token:        DeriveToken(recipientPub),
		Ciphertext:   ciphertext,
		Nonce:        nonce,
		SenderPublic: ephemeral.Public,
		TTLSeconds:   ttlSeconds,
	}, nil
}

// Open decrypts env using the recipient's long-term private key. It returns
// the embedded sender public key, hex-encoded, and the message plaintext.
//
// If the inner plaintext does not carry a well-formed 64-character hex
// prefix followed by the separator, the sender identity cannot be trusted:
// Open reports the sender as "unknown" and returns the entire inner value
// as plaintext, untouched, rather than guess at where the message body
// starts - the envelope itself still decrypted and authenticated
// correctly, so the call is not a failure.
func Open(selfPriv [32]byte, env *Envelope) (senderHex string, plaintext []byte, err error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "Open",
		"package":  "crypto",
	})

	if env == nil {
		return "", nil, ErrInvalidKey
	}

	inner, decErr := Decrypt(env.Ciphertext, env.Nonce, env.SenderPublic, selfPriv)
	if decErr != nil {
		logger.WithError(decErr).Debug("Open failed: envelope did not decrypt")
		return "", nil, ErrDecryptionFailed
	}

	idx := strings.IndexByte(string(inner), innerSeparator[0])
	if idx != 64 {
		logger.Warn("Open: malformed inner plaintext, sender identity unknown")
		return "unknown", inner, nil
	}

	prefix := string(inner[:idx])
	if _, hexErr := hex.DecodeString(prefix); hexErr != nil {
		logger.Warn("Open: sender prefix is not valid hex, sender identity unknown")
		return "unknown", inner, nil
	}

	return prefix, inner[idx+1:], nil
}
