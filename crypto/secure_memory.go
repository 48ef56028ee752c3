package crypto

import (
	"crypto/subtle"
	"errors"
	"runtime"
)

// SecureWipe zeros data in place using a constant-time XOR (x XOR x = 0)
// the compiler cannot optimize away, then pins data alive through the wipe
// with runtime.KeepAlive so the call can't be elided entirely. Seal wipes
// its ephemeral private key through this, and EncryptSymmetric its copy of
// the key, so a later memory dump can't recover them. Decrypted plaintext
// is not wiped by this package.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("crypto: cannot wipe nil data")
	}

	subtle.XORBytes(data, data, data)
	runtime.KeepAlive(data)

	return nil
}

// ZeroBytes wipes data, discarding the (practically unreachable) nil-slice
// error from SecureWipe.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// WipeKeyPair zeros kp's private half. Call this once an ephemeral key
// pair has been used to seal or open an envelope and is no longer needed;
// long-term identity keys are left alone since they're persisted and
// reloaded across runs.
func WipeKeyPair(kp *KeyPair) error {
	if kp == nil {
		return errors.New("crypto: cannot wipe nil key pair")
	}
	return SecureWipe(kp.Private[:])
}
