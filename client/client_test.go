package client

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/zkrelay/api"
	"github.com/opd-ai/zkrelay/crypto"
	"github.com/opd-ai/zkrelay/relay"
)

func newTestServer() *httptest.Server {
	store := relay.NewStore(0)
	handler := api.NewHandler(store, nil)
	router := api.NewRouter(handler)
	return httptest.NewServer(router)
}

func TestSendThenPollRoundTrip(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	recipient, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sender, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	c := New(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, recipient.Public, sender.Public, []byte("hello"), 3600))

	received, err := c.Poll(ctx, recipient.Private, recipient.Public)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "hello", string(received[0].Plaintext))
	assert.Equal(t, hexEncode(sender.Public), received[0].SenderHex)
}

func TestConsumeRemovesFromRelay(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	recipient, _ := crypto.GenerateKeyPair()
	sender, _ := crypto.GenerateKeyPair()

	c := New(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, recipient.Public, sender.Public, []byte("once"), 3600))

	consumed, err := c.Consume(ctx, recipient.Private, recipient.Public)
	require.NoError(t, err)
	require.Len(t, consumed, 1)

	remaining, err := c.Poll(ctx, recipient.Private, recipient.Public)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSendFailsTerminalOn4xx(t *testing.T) {
	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer badServer.Close()

	recipient, _ := crypto.GenerateKeyPair()
	sender, _ := crypto.GenerateKeyPair()

	c := New(badServer.URL)
	c.attempts = 2

	err := c.Send(context.Background(), recipient.Public, sender.Public, []byte("x"), 60)
	assert.Error(t, err)
}

func TestSendRetriesOn5xxThenGivesUp(t *testing.T) {
	attempts := 0
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer flaky.Close()

	recipient, _ := crypto.GenerateKeyPair()
	sender, _ := crypto.GenerateKeyPair()

	c := New(flaky.URL)
	c.attempts = 3

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Send(ctx, recipient.Public, sender.Public, []byte("x"), 60)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestSendRetriesOn429ThenSucceeds(t *testing.T) {
	attempts := 0
	rateLimited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer rateLimited.Close()

	recipient, _ := crypto.GenerateKeyPair()
	sender, _ := crypto.GenerateKeyPair()

	c := New(rateLimited.URL)
	c.attempts = 3

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Send(ctx, recipient.Public, sender.Public, []byte("x"), 60)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func hexEncode(pub [32]byte) string {
	return hex.EncodeToString(pub[:])
}
