package crypto

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SecureFieldHash returns logrus fields safe to attach to a log line next
// to sensitive data: a short hex preview of data's first bytes plus its
// length, never the full value. Encrypt, EncryptSymmetric and envelope
// sealing use this so a debug log can show "which ciphertext" without ever
// writing a decryptable message or key to disk.
func SecureFieldHash(data []byte, name string) logrus.Fields {
	const previewBytes = 8

	if len(data) == 0 {
		return logrus.Fields{
			name + "_preview": "empty",
			name + "_size":    0,
		}
	}

	n := previewBytes
	if len(data) < n {
		n = len(data)
	}

	preview := fmt.Sprintf("%x", data[:n])
	if len(data) > n {
		preview += "..."
	}

	return logrus.Fields{
		name + "_preview": preview,
		name + "_size":    len(data),
	}
}

// EnvelopeFields builds the standard set of logrus fields attached to
// Seal's envelope log line: the routing token derived for this
// message, and a size preview of whichever ciphertext or plaintext the
// caller is about to log about. Call sites merge in their own fields with
// logrus.WithFields for anything specific to that event.
func EnvelopeFields(tokenHex string, payload []byte, payloadName string) logrus.Fields {
	fields := logrus.Fields{
		"token_preview": tokenPreview(tokenHex),
	}
	for k, v := range SecureFieldHash(payload, payloadName) {
		fields[k] = v
	}
	return fields
}

func tokenPreview(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
