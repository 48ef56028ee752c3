package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/zkrelay/relay"
)

// Handler wires the relay store to the HTTP surface. Construct with
// NewHandler; the zero value is not usable.
type Handler struct {
	store       *relay.Store
	rateLimiter RateLimiter
	startedAt   time.Time
}

// NewHandler builds a Handler around store. A nil rateLimiter installs the
// no-op default that allows every request.
func NewHandler(store *relay.Store, rateLimiter RateLimiter) *Handler {
	if rateLimiter == nil {
		rateLimiter = noopRateLimiter{}
	}
	return &Handler{
		store:       store,
		rateLimiter: rateLimiter,
		startedAt:   time.Now(),
	}
}

// HandleRoot serves GET /.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:        "zkrelay",
		Version:     "1.0.0",
		Description: "zero-knowledge encrypted message relay",
	})
}

// HandleHealth serves GET /api/v1/health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStatus serves GET /api/v1/status. It reports counts only, never
// content, and does not require rate-limiting since it accepts no token.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()
	writeJSON(w, http.StatusOK, StatusResponse{
		ActiveTokens:  stats.ActiveTokens,
		TotalMessages: stats.TotalMessages,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	})
}

// HandleSend serves POST /api/v1/send.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body", "")
		return
	}

	if !h.rateLimiter.Allow(req.Token) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
		return
	}

	if !validHex64(req.Token) {
		writeError(w, http.StatusBadRequest, "token must be 64 lowercase hex characters", "token")
		return
	}
	if !validHex64(req.SenderPublicKey) {
		writeError(w, http.StatusBadRequest, "sender_public_key must be 64 lowercase hex characters", "sender_public_key")
		return
	}

	ciphertext, err := decodeBlob(req.Ciphertext)
	if err != nil || len(ciphertext) == 0 {
		writeError(w, http.StatusBadRequest, "ciphertext must be non-empty and base64 encoded", "ciphertext")
		return
	}

	nonceBytes, err := decodeBlob(req.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		writeError(w, http.StatusBadRequest, "nonce must decode to exactly 24 bytes", "nonce")
		return
	}

	ttl := 3600
	if req.TTL != nil {
		if *req.TTL < 0 {
			writeError(w, http.StatusBadRequest, "ttl must be a non-negative integer", "ttl")
			return
		}
		ttl = *req.TTL
	}

	var nonce [24]byte
	copy(nonce[:], nonceBytes)
	// sender_public_key is always hex on the wire (validated above), unlike
	// ciphertext/nonce which are base64.
	var senderPub [32]byte
	senderPubBytes, _ := hex.DecodeString(req.SenderPublicKey)
	copy(senderPub[:], senderPubBytes)

	messageID, err := h.store.Put(req.Token, ciphertext, nonce, senderPub, ttl)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"token_preview": tokenPreview(req.Token),
			"error":         err.Error(),
		}).Error("send: store.Put failed")
		writeError(w, http.StatusServiceUnavailable, "store overloaded", "")
		return
	}

	writeJSON(w, http.StatusOK, SendResponse{
		MessageID:  messageID,
		AcceptedAt: time.Now().Unix(),
	})
}

// HandlePoll serves POST /api/v1/poll. Non-destructive.
func (h *Handler) HandlePoll(w http.ResponseWriter, r *http.Request) {
	h.handleTokenRequest(w, r, h.store.Poll)
}

// HandleConsume serves POST /api/v1/consume. Destructive and atomic.
func (h *Handler) HandleConsume(w http.ResponseWriter, r *http.Request) {
	h.handleTokenRequest(w, r, h.store.Consume)
}

func (h *Handler) handleTokenRequest(w http.ResponseWriter, r *http.Request, fetch func(string) []*relay.StoredMessage) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body", "")
		return
	}

	if !h.rateLimiter.Allow(req.Token) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
		return
	}

	if !validHex64(req.Token) {
		writeError(w, http.StatusBadRequest, "token must be 64 lowercase hex characters", "token")
		return
	}

	// An unknown token and a known-but-empty token return the identical
	// shape below: the relay never reveals which tokens are live.
	messages := fetch(req.Token)

	views := make([]StoredMessageView, len(messages))
	for i, m := range messages {
		views[i] = StoredMessageView{
			MessageID:       m.MessageID,
			Ciphertext:      encodeBlob(m.Ciphertext),
			Nonce:           encodeBlob(m.Nonce[:]),
			SenderPublicKey: hex.EncodeToString(m.SenderPublicKey[:]),
			ReceivedAt:      m.ReceivedAt.Unix(),
			TTL:             m.TTLSeconds,
		}
	}

	writeJSON(w, http.StatusOK, MessagesResponse{
		Messages: views,
		Count:    len(views),
	})
}

