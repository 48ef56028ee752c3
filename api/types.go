package api

import (
	"encoding/base64"
	"encoding/hex"
	"regexp"
)

var hex64Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// SendRequest is the wire shape POSTed to /api/v1/send.
type SendRequest struct {
	Token           string `json:"token"`
	Ciphertext      string `json:"ciphertext"`
	Nonce           string `json:"nonce"`
	SenderPublicKey string `json:"sender_public_key"`
	TTL             *int   `json:"ttl"`
}

// TokenRequest is the wire shape POSTed to /api/v1/poll and /api/v1/consume.
type TokenRequest struct {
	Token string `json:"token"`
}

// SendResponse is returned on a successful /api/v1/send.
type SendResponse struct {
	MessageID  string `json:"message_id"`
	AcceptedAt int64  `json:"accepted_at"`
}

// StoredMessageView is the wire representation of a stored message
// returned by poll/consume.
type StoredMessageView struct {
	MessageID       string `json:"message_id"`
	Ciphertext      string `json:"ciphertext"`
	Nonce           string `json:"nonce"`
	SenderPublicKey string `json:"sender_public_key"`
	ReceivedAt      int64  `json:"received_at"`
	TTL             int    `json:"ttl"`
}

// MessagesResponse is returned by both /api/v1/poll and /api/v1/consume.
type MessagesResponse struct {
	Messages []StoredMessageView `json:"messages"`
	Count    int                 `json:"count"`
}

// StatusResponse is returned by /api/v1/status. It never includes content.
type StatusResponse struct {
	ActiveTokens  int   `json:"active_tokens"`
	TotalMessages int   `json:"total_messages"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// HealthResponse is returned by /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// RootResponse is returned by GET /.
type RootResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// ErrorResponse is the stable JSON error shape for every 4xx/5xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// validHex64 reports whether s is exactly 64 lowercase hex characters.
func validHex64(s string) bool {
	return hex64Pattern.MatchString(s)
}

// decodeBlob decodes s as base64 (standard, padded or unpadded), the wire
// encoding for ciphertext/nonce, and returns the decoded bytes. Hex decoding
// is tried only when s is not valid base64. Every even-length hex string is
// also valid base64, so a hex-encoded value is decoded as base64, not as
// hex.
func decodeBlob(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return hex.DecodeString(s)
}

func encodeBlob(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
