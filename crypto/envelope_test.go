package crypto

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	recipient, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	sender, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	msg := []byte("hello from the other side")
	env, err := Seal(recipient.Public, sender.Public, msg, 3600)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}

	if env.Token != DeriveToken(recipient.Public) {
		t.Errorf("envelope token mismatch: got %s", env.Token)
	}

	senderHex, plaintext, err := Open(recipient.Private, env)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	if !bytes.Equal(plaintext, msg) {
		t.Errorf("plaintext mismatch: got %q want %q", plaintext, msg)
	}

	wantHex := hex.EncodeToString(sender.Public[:])
	if senderHex != wantHex {
		t.Errorf("sender identity mismatch: got %s want %s", senderHex, wantHex)
	}
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	recipient, _ := GenerateKeyPair()
	sender, _ := GenerateKeyPair()
	wrongKey, _ := GenerateKeyPair()

	env, err := Seal(recipient.Public, sender.Public, []byte("secret"), 60)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}

	if _, _, err := Open(wrongKey.Private, env); err == nil {
		t.Error("Open() with wrong private key should fail")
	}
}

func TestDeriveTokenIsDeterministic(t *testing.T) {
	kp, _ := GenerateKeyPair()

	tok1 := DeriveToken(kp.Public)
	tok2 := DeriveToken(kp.Public)

	if tok1 != tok2 {
		t.Errorf("DeriveToken() not deterministic: %s != %s", tok1, tok2)
	}
	if len(tok1) != 64 {
		t.Errorf("DeriveToken() expected 64 hex chars, got %d", len(tok1))
	}

	other, _ := GenerateKeyPair()
	if DeriveToken(other.Public) == tok1 {
		t.Error("DeriveToken() collided for distinct keys")
	}
}

func TestSealUsesDistinctEphemeralKeys(t *testing.T) {
	recipient, _ := GenerateKeyPair()
	sender, _ := GenerateKeyPair()

	env1, err := Seal(recipient.Public, sender.Public, []byte("one"), 60)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	env2, err := Seal(recipient.Public, sender.Public, []byte("two"), 60)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}

	if env1.SenderPublic == env2.SenderPublic {
		t.Error("Seal() reused an ephemeral public key across calls")
	}
}

func TestOpenMalformedInnerReportsUnknownSender(t *testing.T) {
	recipient, _ := GenerateKeyPair()
	ephemeral, _ := GenerateKeyPair()
	defer ZeroBytes(ephemeral.Private[:])

	nonce, _ := GenerateNonce()
	ciphertext, err := Encrypt([]byte("no separator here"), nonce, recipient.Public, ephemeral.Private)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	env := &Envelope{
		Token:        DeriveToken(recipient.Public),
		Ciphertext:   ciphertext,
		Nonce:        nonce,
		SenderPublic: ephemeral.Public,
		TTLSeconds:   60,
	}

	senderHex, plaintext, err := Open(recipient.Private, env)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	if senderHex != "unknown" {
		t.Errorf("expected unknown sender, got %s", senderHex)
	}
	if string(plaintext) != "no separator here" {
		t.Errorf("unexpected plaintext: %q", plaintext)
	}
}

func TestOpenShortPrefixReturnsWholeInner(t *testing.T) {
	recipient, _ := GenerateKeyPair()
	ephemeral, _ := GenerateKeyPair()
	defer ZeroBytes(ephemeral.Private[:])

	nonce, _ := GenerateNonce()
	ciphertext, err := Encrypt([]byte("not-hex|payload"), nonce, recipient.Public, ephemeral.Private)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	env := &Envelope{
		Token:        DeriveToken(recipient.Public),
		Ciphertext:   ciphertext,
		Nonce:        nonce,
		SenderPublic: ephemeral.Public,
		TTLSeconds:   60,
	}

	senderHex, plaintext, err := Open(recipient.Private, env)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	if senderHex != "unknown" {
		t.Errorf("expected unknown sender, got %s", senderHex)
	}
	if string(plaintext) != "not-hex|payload" {
		t.Errorf("expected whole inner returned verbatim, got %q", plaintext)
	}
}

func TestOpenNonHex64PrefixReturnsWholeInner(t *testing.T) {
	recipient, _ := GenerateKeyPair()
	ephemeral, _ := GenerateKeyPair()
	defer ZeroBytes(ephemeral.Private[:])

	badPrefix := strings.Repeat("z", 64)
	body := badPrefix + "|payload"

	nonce, _ := GenerateNonce()
	ciphertext, err := Encrypt([]byte(body), nonce, recipient.Public, ephemeral.Private)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	env := &Envelope{
		Token:        DeriveToken(recipient.Public),
		Ciphertext:   ciphertext,
		Nonce:        nonce,
		SenderPublic: ephemeral.Public,
		TTLSeconds:   60,
	}

	senderHex, plaintext, err := Open(recipient.Private, env)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	if senderHex != "unknown" {
		t.Errorf("expected unknown sender, got %s", senderHex)
	}
	if string(plaintext) != body {
		t.Errorf("expected whole inner returned verbatim, got %q", plaintext)
	}
}
