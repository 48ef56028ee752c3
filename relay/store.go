package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MinTTLSeconds and MaxTTLSeconds bound the lifetime the store will honor
// for a stored message. A caller-supplied ttl outside this range is
// clamped, never rejected: ttl is advisory, not a contract the relay
// promises to enforce exactly.
const (
	MinTTLSeconds = 60
	MaxTTLSeconds = 86400

	// DefaultMaxQueueLen is the per-token soft cap enforced by Put. Once
	// reached, the oldest message in the queue is evicted FIFO to make
	// room for the new one.
	DefaultMaxQueueLen = 1000

	// DefaultMaxTotalMessages bounds the store's aggregate size across every
	// token. Unlike the per-token cap (which trades old messages for new
	// ones under bursty traffic to a single recipient), this is a hard
	// backstop against unbounded memory growth from many distinct tokens
	// filling up at once.
	DefaultMaxTotalMessages = 100000
)

// ErrStoreOverloaded is returned by Put when the store's aggregate message
// count is already at its total cap. Unlike the per-token cap, which sheds
// load by evicting the oldest message FIFO, the total cap protects the
// process as a whole and rejects instead.
var ErrStoreOverloaded = errors.New("relay: store overloaded")

// StoredMessage is an envelope plus the server-assigned bookkeeping needed
// to expire and order it.
type StoredMessage struct {
	MessageID       string
	Token           string
	Ciphertext      []byte
	Nonce           [24]byte
	SenderPublicKey [32]byte
	ReceivedAt      time.Time
	TTLSeconds      int
}

// Expired reports whether m has outlived its ttl as of now.
func (m *StoredMessage) Expired(now time.Time) bool {
	return !now.Before(m.ReceivedAt.Add(time.Duration(m.TTLSeconds) * time.Second))
}

// Stats is a content-free snapshot of store occupancy, safe to expose over
// an unauthenticated status endpoint.
type Stats struct {
	ActiveTokens      int
	TotalMessages     int
	ExpiredSweptTotal uint64
}

// Store is the in-memory token -> queue mapping. The zero value is not
// usable; construct with NewStore. A single mutex guards the whole map:
// per-token sharding was considered and rejected as unnecessary complexity
// at this traffic scale, and it keeps consume's atomicity trivial to
// reason about.
type Store struct {
	mu                sync.Mutex
	queues            map[string][]*StoredMessage
	maxPerToken       int
	maxTotal          int
	expiredSweptTotal uint64
}

// NewStore creates an empty Store with the given per-token queue cap and the
// default aggregate cap (DefaultMaxTotalMessages). A maxPerToken of 0 or less
// uses DefaultMaxQueueLen. Use NewStoreWithTotalCap to also configure the
// aggregate cap.
func NewStore(maxPerToken int) *Store {
	return NewStoreWithTotalCap(maxPerToken, DefaultMaxTotalMessages)
}

// NewStoreWithTotalCap creates an empty Store with both the per-token queue
// cap and the aggregate message cap configured explicitly. A maxPerToken or
// maxTotal of 0 or less falls back to its respective default.
func NewStoreWithTotalCap(maxPerToken, maxTotal int) *Store {
	if maxPerToken <= 0 {
		maxPerToken = DefaultMaxQueueLen
	}
	if maxTotal <= 0 {
		maxTotal = DefaultMaxTotalMessages
	}
	return &Store{
		queues:      make(map[string][]*StoredMessage),
		maxPerToken: maxPerToken,
		maxTotal:    maxTotal,
	}
}

func clampTTL(ttlSeconds int) int {
	if ttlSeconds < MinTTLSeconds {
		return MinTTLSeconds
	}
	if ttlSeconds > MaxTTLSeconds {
		return MaxTTLSeconds
	}
	return ttlSeconds
}

func newMessageID() string {
	return uuid.NewString()
}

// Put appends a new message to token's queue and returns its assigned
// message id. The message's ttl is clamped into [MinTTLSeconds,
// MaxTTLSeconds]. If the token's own queue is already at its per-token cap,
// the oldest message in that queue is evicted to make room (FIFO) - this
// keeps a single bursty token from starving others without ever growing the
// store. If the store's aggregate size across every token is already at its
// total cap, Put instead rejects with ErrStoreOverloaded: unlike the
// per-token case, there is no single queue to shed from, so a new message
// cannot be admitted without unbounded growth.
func (s *Store) Put(token string, ciphertext []byte, nonce [24]byte, senderPub [32]byte, ttlSeconds int) (string, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function":      "Put",
		"package":       "relay",
		"token_preview": tokenPreview(token),
	})

	ciphertextCopy := make([]byte, len(ciphertext))
	copy(ciphertextCopy, ciphertext)

	msg := &StoredMessage{
		MessageID:       newMessageID(),
		Token:           token,
		Ciphertext:      ciphertextCopy,
		Nonce:           nonce,
		SenderPublicKey: senderPub,
		ReceivedAt:      time.Now(),
		TTLSeconds:      clampTTL(ttlSeconds),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.queues[token]
	evicting := len(queue) >= s.maxPerToken

	if !evicting && s.totalMessagesLocked() >= s.maxTotal {
		logger.WithFields(logrus.Fields{
			"max_total": s.maxTotal,
		}).Warn("Put: store at aggregate capacity, rejecting message")
		return "", ErrStoreOverloaded
	}

	if evicting {
		evicted := queue[0]
		queue = queue[1:]
		logger.WithFields(logrus.Fields{
			"evicted_message_id": evicted.MessageID,
			"operation":          "fifo_eviction",
		}).Warn("Put: per-token queue at capacity, evicting oldest message")
	}
	queue = append(queue, msg)
	s.queues[token] = queue

	logger.WithFields(logrus.Fields{
		"message_id": msg.MessageID,
		"queue_len":  len(queue),
		"ttl":        msg.TTLSeconds,
	}).Debug("Put: message stored")

	return msg.MessageID, nil
}

// totalMessagesLocked sums the length of every token's queue. Callers must
// hold s.mu.
func (s *Store) totalMessagesLocked() int {
	total := 0
	for _, queue := range s.queues {
		total += len(queue)
	}
	return total
}

// Poll returns a snapshot of every currently-live message queued under
// token, in arrival order. It does not modify the store, but expired
// entries encountered along the way are lazily dropped so later calls
// don't keep paying to skip over them. An unknown token returns an empty,
// non-nil slice - identical in shape to a token that has just been fully
// consumed, by design.
func (s *Store) Poll(token string) []*StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.liveLocked(token)
}

// Consume atomically returns and removes every currently-live message
// queued under token. After it returns, the token's queue is empty (the
// key itself may persist until the next janitor sweep).
func (s *Store) Consume(token string) []*StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.liveLocked(token)
	if len(live) > 0 {
		delete(s.queues, token)
	}
	return live
}

// liveLocked filters out expired messages from token's queue, writing the
// filtered queue back to the map, and returns the live messages. Callers
// must hold s.mu.
func (s *Store) liveLocked(token string) []*StoredMessage {
	queue, ok := s.queues[token]
	if !ok || len(queue) == 0 {
		return []*StoredMessage{}
	}

	now := time.Now()
	live := make([]*StoredMessage, 0, len(queue))
	for _, m := range queue {
		if !m.Expired(now) {
			live = append(live, m)
		}
	}

	if len(live) == 0 {
		delete(s.queues, token)
	} else {
		s.queues[token] = live
	}

	out := make([]*StoredMessage, len(live))
	copy(out, live)
	return out
}

// Stats returns a content-free occupancy snapshot.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		ActiveTokens:      len(s.queues),
		TotalMessages:     s.totalMessagesLocked(),
		ExpiredSweptTotal: s.expiredSweptTotal,
	}
}

// sweepOnce performs one janitor pass: it walks a stable snapshot of
// tokens, bounding each step's critical section to a single token so
// steady-state put/poll/consume traffic is never starved for more than
// one token's worth of work.
func (s *Store) sweepOnce() {
	s.mu.Lock()
	tokens := make([]string, 0, len(s.queues))
	for token := range s.queues {
		tokens = append(tokens, token)
	}
	s.mu.Unlock()

	for _, token := range tokens {
		s.mu.Lock()
		queue, ok := s.queues[token]
		if !ok {
			s.mu.Unlock()
			continue
		}

		now := time.Now()
		live := queue[:0:0]
		swept := 0
		for _, m := range queue {
			if m.Expired(now) {
				swept++
				continue
			}
			live = append(live, m)
		}

		if len(live) == 0 {
			delete(s.queues, token)
		} else {
			s.queues[token] = live
		}
		s.expiredSweptTotal += uint64(swept)
		s.mu.Unlock()
	}
}

func tokenPreview(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
