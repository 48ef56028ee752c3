// Package api exposes the relay store over HTTP/JSON: send, poll, consume,
// status and health. Handlers validate every inbound request against the
// wire schema before touching the store, and emit only minimal logs -
// endpoint, token prefix, status code - never ciphertext, nonces, sender
// keys or full tokens.
package api
