// Package relay implements the zero-knowledge message store: an in-memory
// mapping from anonymous routing token to an ordered queue of envelopes,
// with TTL-based expiration and a background janitor.
//
// The store never inspects ciphertext, nonces or sender public keys beyond
// copying them; it has no notion of "content" at all. It only ever sees
// the token a client chooses to poll or consume.
package relay
