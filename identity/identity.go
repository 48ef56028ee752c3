// Package identity manages the client's long-term key pair: generation,
// and persistence to a JSON file (by default keys/identity.json, resolved
// against the working directory, not the executable's directory).
package identity

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/zkrelay/crypto"
)

// DefaultDir is the directory identity files live under, relative to the
// client's working directory.
const DefaultDir = "keys"

// DefaultFile is the filename the identity is persisted to within DefaultDir.
const DefaultFile = "identity.json"

// ErrNoIdentity is returned by Load when no identity file exists yet.
var ErrNoIdentity = errors.New("identity: no identity file found")

// record is the on-disk JSON shape.
type record struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
	CreatedAt  string `json:"created_at"`
}

// Identity is a long-term key pair plus its creation time.
type Identity struct {
	KeyPair   *crypto.KeyPair
	CreatedAt time.Time
}

// Generate creates a fresh long-term identity. It does not persist it;
// call Save to write it to disk.
func Generate() (*Identity, error) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &Identity{KeyPair: kp, CreatedAt: time.Now()}, nil
}

// Load reads an identity from path. If path is empty, DefaultDir/DefaultFile
// is used.
func Load(path string) (*Identity, error) {
	if path == "" {
		path = filepath.Join(DefaultDir, DefaultFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoIdentity
		}
		return nil, err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	privBytes, err := hex.DecodeString(rec.PrivateKey)
	if err != nil || len(privBytes) != 32 {
		return nil, errors.New("identity: malformed private key in identity file")
	}
	pubBytes, err := hex.DecodeString(rec.PublicKey)
	if err != nil || len(pubBytes) != 32 {
		return nil, errors.New("identity: malformed public key in identity file")
	}

	var kp crypto.KeyPair
	copy(kp.Private[:], privBytes)
	copy(kp.Public[:], pubBytes)

	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}

	return &Identity{KeyPair: &kp, CreatedAt: createdAt}, nil
}

// Save persists id to path, creating parent directories as needed. If path
// is empty, DefaultDir/DefaultFile is used.
func (id *Identity) Save(path string) error {
	if path == "" {
		path = filepath.Join(DefaultDir, DefaultFile)
	}

	logger := logrus.WithFields(logrus.Fields{
		"function": "Save",
		"package":  "identity",
	})

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	rec := record{
		PrivateKey: hex.EncodeToString(id.KeyPair.Private[:]),
		PublicKey:  hex.EncodeToString(id.KeyPair.Public[:]),
		CreatedAt:  id.CreatedAt.Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"public_key_preview": rec.PublicKey[:8],
		"path":               path,
	}).Info("identity saved")

	return nil
}

// LoadOrGenerate loads an existing identity from path, or generates and
// saves a new one if none exists.
func LoadOrGenerate(path string) (*Identity, error) {
	id, err := Load(path)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoIdentity) {
		return nil, err
	}

	id, err = Generate()
	if err != nil {
		return nil, err
	}
	if err := id.Save(path); err != nil {
		return nil, err
	}
	return id, nil
}

// PublicHex returns the hex-encoded long-term public key - the identity
// string shared with other participants.
func (id *Identity) PublicHex() string {
	return hex.EncodeToString(id.KeyPair.Public[:])
}
