// Package crypto implements the cryptographic envelope used by zkrelay.
//
// This package provides the cryptographic foundation for the relay client and
// server: NaCl-based authenticated encryption, secure key management, memory
// wiping of sensitive material, and the envelope format that lets a relay
// that never sees a plaintext message or a recipient identity still route
// messages to the right party.
//
// # Core Types
//
//   - [KeyPair]: NaCl crypto_box key pair (Curve25519), used both for
//     long-term identity keys and for the per-message ephemeral keys that
//     provide forward secrecy.
//   - [Nonce]: 24-byte random nonce for a single encryption operation.
//   - [Envelope]: the sealed unit exchanged with the relay - a routing
//     token, ciphertext, nonce and ephemeral sender public key.
//
// # Encryption and Decryption
//
// The package supports authenticated public-key encryption (NaCl box) and
// symmetric encryption (NaCl secretbox):
//
//	nonce, _ := crypto.GenerateNonce()
//	ciphertext, _ := crypto.Encrypt(plaintext, nonce, recipientPublicKey, senderPrivateKey)
//	plaintext, _ := crypto.Decrypt(ciphertext, nonce, senderPublicKey, recipientPrivateKey)
//
// # Envelopes
//
// Seal and Open wrap the above primitives into the format the relay stores
// and serves. Sealing generates a fresh ephemeral key pair per message so
// that compromise of one message's key material does not expose any other
// message:
//
//	env, _ := crypto.Seal(recipientPub, selfPub, []byte("hello"), 3600)
//	sender, plaintext, _ := crypto.Open(selfPriv, env)
//
// # Key Generation
//
// Generate new cryptographic key pairs using secure random entropy:
//
//	keyPair, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Public key:", hex.EncodeToString(keyPair.Public[:]))
//
// # Memory Hygiene
//
// Private key material and ephemeral secrets should be wiped as soon as
// they are no longer needed, using [SecureWipe], [ZeroBytes] or
// [WipeKeyPair]. These use a constant-time XOR the compiler cannot
// optimize away, rather than a plain loop that a smart compiler might
// elide.
package crypto
