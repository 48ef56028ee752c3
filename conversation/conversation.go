// Package conversation tracks decrypted message history per peer,
// persisted under a local chat_data directory. History is sealed at rest
// with NaCl secretbox under the local identity's own private key, so a
// stolen chat_data directory reveals nothing without also compromising
// keys/identity.json.
package conversation

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/opd-ai/zkrelay/crypto"
)

// DefaultDir is the directory conversation history files live under.
const DefaultDir = "chat_data"

// Direction labels whether a message was sent or received.
type Direction string

const (
	// Inbound marks a message received from a peer.
	Inbound Direction = "inbound"
	// Outbound marks a message sent to a peer.
	Outbound Direction = "outbound"
)

// Message is one decrypted entry in a conversation's history.
type Message struct {
	Direction Direction `json:"direction"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Conversation is the history shared between a local identity and a single
// peer, identified by the peer's long-term public key (hex).
type Conversation struct {
	PeerPublicHex string
	History       []Message
}

// sealedFile is the on-disk shape: a secretbox-sealed blob of the
// marshaled history plus the nonce used to seal it.
type sealedFile struct {
	Nonce      [24]byte `json:"nonce"`
	Ciphertext []byte   `json:"ciphertext"`
}

func pathFor(dir, peerPublicHex string) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, peerPublicHex+".json")
}

// Load reads and decrypts a peer's conversation history from dir
// (DefaultDir if empty), sealed under key (the local identity's private
// key). A missing file is not an error: it returns an empty conversation,
// since a brand new peer has no history yet.
func Load(dir, peerPublicHex string, key [32]byte) (*Conversation, error) {
	path := pathFor(dir, peerPublicHex)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Conversation{PeerPublicHex: peerPublicHex}, nil
		}
		return nil, err
	}

	var sealed sealedFile
	if err := json.Unmarshal(raw, &sealed); err != nil {
		return nil, err
	}

	plaintext, err := crypto.DecryptSymmetric(sealed.Ciphertext, crypto.Nonce(sealed.Nonce), key)
	if err != nil {
		return nil, errors.New("conversation: history file could not be decrypted with this identity")
	}

	var history []Message
	if err := json.Unmarshal(plaintext, &history); err != nil {
		return nil, err
	}

	return &Conversation{PeerPublicHex: peerPublicHex, History: history}, nil
}

// Append adds a message to the conversation's in-memory history, keeping
// entries sorted by timestamp.
func (c *Conversation) Append(direction Direction, text string, at time.Time) {
	c.History = append(c.History, Message{Direction: direction, Timestamp: at, Text: text})
	sort.SliceStable(c.History, func(i, j int) bool {
		return c.History[i].Timestamp.Before(c.History[j].Timestamp)
	})
}

// Save encrypts and persists the conversation's history to dir (DefaultDir
// if empty) under key, creating the directory if needed. An empty history
// is still written, so a conversation that starts and ends with no
// messages exchanged leaves a well-formed (if trivial) file behind.
func (c *Conversation) Save(dir string, key [32]byte) error {
	path := pathFor(dir, c.PeerPublicHex)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	plaintext, err := json.Marshal(c.History)
	if err != nil {
		return err
	}

	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return err
	}

	ciphertext, err := crypto.EncryptSymmetric(plaintext, nonce, key)
	if err != nil {
		return err
	}

	sealed := sealedFile{Nonce: [24]byte(nonce), Ciphertext: ciphertext}
	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
