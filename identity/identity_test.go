package identity

import (
	"path/filepath"
	"testing"
)

func TestGenerateProducesUsableKeyPair(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(id.PublicHex()) != 64 {
		t.Errorf("PublicHex() length = %d, want 64", len(id.PublicHex()))
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.json")

	id, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if err := id.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if loaded.PublicHex() != id.PublicHex() {
		t.Errorf("loaded public key %s != saved %s", loaded.PublicHex(), id.PublicHex())
	}
	if loaded.KeyPair.Private != id.KeyPair.Private {
		t.Error("loaded private key does not match saved private key")
	}
}

func TestLoadMissingFileReturnsErrNoIdentity(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	if err != ErrNoIdentity {
		t.Errorf("expected ErrNoIdentity, got %v", err)
	}
}

func TestLoadOrGenerateCreatesOnFirstCall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.json")

	first, err := LoadOrGenerate(path)
	if err != nil {
		t.Fatalf("LoadOrGenerate() error: %v", err)
	}

	second, err := LoadOrGenerate(path)
	if err != nil {
		t.Fatalf("LoadOrGenerate() second call error: %v", err)
	}

	if first.PublicHex() != second.PublicHex() {
		t.Error("LoadOrGenerate() generated a new identity instead of reloading the saved one")
	}
}
