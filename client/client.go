// Package client ties crypto, identity and conversation together into an
// HTTP client for the relay's send/poll/consume endpoints, with
// retry-with-backoff on transport failures.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/zkrelay/crypto"
)

// ErrUndeliverable is returned when a send exhausts its retry budget
// without the relay accepting the message.
var ErrUndeliverable = errors.New("client: message undeliverable after retries")

const (
	retryBaseDelay  = 500 * time.Millisecond
	retryFactor     = 2
	defaultAttempts = 5
)

// Client sends and retrieves envelopes against a relay server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
}

// New creates a Client targeting baseURL (e.g. "http://localhost:8080")
// with a default request timeout.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		attempts:   defaultAttempts,
	}
}

// wireSendRequest mirrors api.SendRequest without importing the api
// package, keeping the client free of any HTTP-server dependency.
type wireSendRequest struct {
	Token           string `json:"token"`
	Ciphertext      string `json:"ciphertext"`
	Nonce           string `json:"nonce"`
	SenderPublicKey string `json:"sender_public_key"`
	TTL             int    `json:"ttl"`
}

type wireTokenRequest struct {
	Token string `json:"token"`
}

type wireMessageView struct {
	MessageID       string `json:"message_id"`
	Ciphertext      string `json:"ciphertext"`
	Nonce           string `json:"nonce"`
	SenderPublicKey string `json:"sender_public_key"`
	ReceivedAt      int64  `json:"received_at"`
	TTL             int    `json:"ttl"`
}

type wireMessagesResponse struct {
	Messages []wireMessageView `json:"messages"`
	Count    int               `json:"count"`
}

// Received is a decoded envelope handed back by Poll/Consume.
type Received struct {
	MessageID  string
	SenderHex  string
	Plaintext  []byte
	ReceivedAt time.Time
}

// Send seals plaintext for recipientPub and posts it to the relay,
// retrying transport failures with exponential backoff.
func (c *Client) Send(ctx context.Context, recipientPub [32]byte, selfPub [32]byte, plaintext []byte, ttlSeconds int) error {
	env, err := crypto.Seal(recipientPub, selfPub, plaintext, ttlSeconds)
	if err != nil {
		return fmt.Errorf("client: seal: %w", err)
	}

	req := wireSendRequest{
		Token:           env.Token,
		Ciphertext:      base64.StdEncoding.EncodeToString(env.Ciphertext),
		Nonce:           base64.StdEncoding.EncodeToString(env.Nonce[:]),
		SenderPublicKey: hex.EncodeToString(env.SenderPublic[:]),
		TTL:             env.TTLSeconds,
	}

	return c.withRetry(ctx, func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/v1/send", req, nil)
	})
}

// Poll retrieves, without removing, every live message queued under the
// identity's routing token.
func (c *Client) Poll(ctx context.Context, selfPriv, selfPub [32]byte) ([]Received, error) {
	return c.fetch(ctx, "/api/v1/poll", selfPriv, selfPub)
}

// Consume retrieves and removes every live message queued under the
// identity's routing token.
func (c *Client) Consume(ctx context.Context, selfPriv, selfPub [32]byte) ([]Received, error) {
	return c.fetch(ctx, "/api/v1/consume", selfPriv, selfPub)
}

func (c *Client) fetch(ctx context.Context, path string, selfPriv, selfPub [32]byte) ([]Received, error) {
	token := crypto.DeriveToken(selfPub)
	req := wireTokenRequest{Token: token}

	var resp wireMessagesResponse
	err := c.withRetry(ctx, func(ctx context.Context) error {
		return c.postJSON(ctx, path, req, &resp)
	})
	if err != nil {
		return nil, err
	}

	out := make([]Received, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ciphertext, err := base64.StdEncoding.DecodeString(m.Ciphertext)
		if err != nil {
			continue
		}
		nonceBytes, err := base64.StdEncoding.DecodeString(m.Nonce)
		if err != nil || len(nonceBytes) != 24 {
			continue
		}
		senderBytes, err := hex.DecodeString(m.SenderPublicKey)
		if err != nil || len(senderBytes) != 32 {
			continue
		}

		var nonce crypto.Nonce
		copy(nonce[:], nonceBytes)
		var senderPub [32]byte
		copy(senderPub[:], senderBytes)

		env := &crypto.Envelope{
			Token:        token,
			Ciphertext:   ciphertext,
			Nonce:        nonce,
			SenderPublic: senderPub,
			TTLSeconds:   m.TTL,
		}

		senderHex, plaintext, err := crypto.Open(selfPriv, env)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"message_id": m.MessageID,
			}).Warn("client: undeliverable message discarded")
			continue
		}

		out = append(out, Received{
			MessageID:  m.MessageID,
			SenderHex:  senderHex,
			Plaintext:  plaintext,
			ReceivedAt: time.Unix(m.ReceivedAt, 0),
		})
	}

	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return networkError{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return networkError{fmt.Errorf("relay returned %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("client: request rejected with status %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// networkError marks a failure as transport-level and therefore
// retryable: postJSON returns it for transport errors, 5xx responses and
// 429, while every other 4xx response is terminal.
type networkError struct{ err error }

func (n networkError) Error() string { return n.err.Error() }
func (n networkError) Unwrap() error { return n.err }

func isRetryable(err error) bool {
	var ne networkError
	return errors.As(err, &ne)
}

// withRetry runs op with a fixed exponential backoff schedule: base 500ms,
// factor 2, capped at c.attempts tries. Only transport-level failures, 5xx
// relay responses and 429 are retried; other 4xx responses are terminal.
func (c *Client) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	delay := retryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if attempt == c.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= retryFactor
	}

	return fmt.Errorf("%w: %v", ErrUndeliverable, lastErr)
}
