package crypto

import (
	"bytes"
	"testing"
)

func TestGenerateKeyPair(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	if keyPair == nil {
		t.Fatal("GenerateKeyPair() returned nil key pair")
	}

	// Check that keys are not zero
	if isZeroKey(keyPair.Public) {
		t.Error("GenerateKeyPair() returned zero public key")
	}

	if isZeroKey(keyPair.Private) {
		t.Error("GenerateKeyPair() returned zero private key")
	}

	// Test that multiple key generations produce different keys
	keyPair2, _ := GenerateKeyPair()
	if bytes.Equal(keyPair.Public[:], keyPair2.Public[:]) {
		t.Error("Multiple GenerateKeyPair() calls produced identical public keys")
	}
}

func TestFromSecretKey(t *testing.T) {
	cases := []struct {
		name      string
		secretKey [32]byte
		wantError bool
	}{
		{
			name:      "Valid key",
			secretKey: [32]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32},
			wantError: false,
		},
		{
			name:      "Zero key",
			secretKey: [32]byte{},
			wantError: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keyPair, err := FromSecretKey(tc.secretKey)

			if tc.wantError && err == nil {
				t.Fatal("FromSecretKey() expected error but got nil")
			}

			if !tc.wantError {
				if err != nil {
					t.Fatalf("FromSecretKey() unexpected error: %v", err)
				}

				if keyPair == nil {
					t.Fatal("FromSecretKey() returned nil key pair")
				}

				if bytes.Equal(keyPair.Public[:], make([]byte, 32)) {
					t.Error("FromSecretKey() returned zero public key")
				}

				// Check that private key matches input
				if !bytes.Equal(keyPair.Private[:], tc.secretKey[:]) {
					t.Error("FromSecretKey() modified the private key")
				}
			}
		})
	}
}

func TestGenerateNonce(t *testing.T) {
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce() error: %v", err)
	}

	// Check nonce is not zero
	zeroNonce := Nonce{}
	if bytes.Equal(nonce[:], zeroNonce[:]) {
		t.Error("GenerateNonce() returned zero nonce")
	}

	// Test multiple nonce generations produce different values
	nonce2, _ := GenerateNonce()
	if bytes.Equal(nonce[:], nonce2[:]) {
		t.Error("Multiple GenerateNonce() calls produced identical nonces")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	// Generate key pairs for sender and recipient
	senderKeys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate sender key pair: %v", err)
	}

	recipientKeys, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate recipient key pair: %v", err)
	}

	// Generate a nonce
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatalf("Failed to generate nonce: %v", err)
	}

	testCases := []struct {
		name      string
		message   []byte
		expectErr bool
	}{
		{"Normal message", []byte("Hello, this is a test message!"), false},
		{"Empty message", []byte{}, true},
		{"Binary data", []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD}, false},
		{"Long message", bytes.Repeat([]byte("A"), 1024), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Encrypt message
			ciphertext, err := Encrypt(tc.message, nonce, recipientKeys.Public, senderKeys.Private)

			if tc.expectErr {
				if err == nil {
					t.Fatal("Expected encryption error, but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("Encrypt() error: %v", err)
			}

			// Decrypt message
			decrypted, err := Decrypt(ciphertext, nonce, senderKeys.Public, recipientKeys.Private)
			if err != nil {
				t.Fatalf("Decrypt() error: %v", err)
			}

			// Check if decryption result matches original
			if !bytes.Equal(tc.message, decrypted) {
				t.Errorf("Decrypted message doesn't match original. Got: %v, want: %v", decrypted, tc.message)
			}
		})
	}

	// Test decryption failures
	t.Run("Decryption failures", func(t *testing.T) {
		validMsg := []byte("Valid message")
		ciphertext, _ := Encrypt(validMsg, nonce, recipientKeys.Public, senderKeys.Private)

		// Tamper with ciphertext
		if len(ciphertext) > 0 {
			tamperedCiphertext := make([]byte, len(ciphertext))
			copy(tamperedCiphertext, ciphertext)
			tamperedCiphertext[0] ^= 0xFF

			_, err := Decrypt(tamperedCiphertext, nonce, senderKeys.Public, recipientKeys.Private)
			if err == nil {
				t.Error("Decrypt() with tampered ciphertext should fail")
			}
		}

		// Empty ciphertext
		_, err := Decrypt([]byte{}, nonce, senderKeys.Public, recipientKeys.Private)
		if err == nil {
			t.Error("Decrypt() with empty ciphertext should fail")
		}
	})
}

func TestEncryptDecryptSymmetric(t *testing.T) {
	// Generate a symmetric key (using 32 bytes as per NaCl's secretbox)
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}

	// Generate a nonce
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatalf("Failed to generate nonce: %v", err)
	}

	testCases := []struct {
		name      string
		message   []byte
		expectErr bool
	}{
		{"Normal message", []byte("Hello, this is a test message!"), false},
		{"Empty message", []byte{}, true},
		{"Binary data", []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD}, false},
		{"Long message", bytes.Repeat([]byte("A"), 1024), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Encrypt message
			ciphertext, err := EncryptSymmetric(tc.message, nonce, key)

			if tc.expectErr {
				if err == nil {
					t.Fatal("Expected encryption error, but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("EncryptSymmetric() error: %v", err)
			}

			// Decrypt message
			decrypted, err := DecryptSymmetric(ciphertext, nonce, key)
			if err != nil {
				t.Fatalf("DecryptSymmetric() error: %v", err)
			}

			// Check if decryption result matches original
			if !bytes.Equal(tc.message, decrypted) {
				t.Errorf("Decrypted message doesn't match original. Got: %v, want: %v", decrypted, tc.message)
			}
		})
	}

	// Test decryption failures
	t.Run("Symmetric decryption failures", func(t *testing.T) {
		validMsg := []byte("Valid message")
		ciphertext, _ := EncryptSymmetric(validMsg, nonce, key)

		// Tamper with ciphertext
		if len(ciphertext) > 0 {
			tamperedCiphertext := make([]byte, len(ciphertext))
			copy(tamperedCiphertext, ciphertext)
			tamperedCiphertext[0] ^= 0xFF

			_, err := DecryptSymmetric(tamperedCiphertext, nonce, key)
			if err == nil {
				t.Error("DecryptSymmetric() with tampered ciphertext should fail")
			}
		}

		// Empty ciphertext
		_, err := DecryptSymmetric([]byte{}, nonce, key)
		if err == nil {
			t.Error("DecryptSymmetric() with empty ciphertext should fail")
		}
	})
}

