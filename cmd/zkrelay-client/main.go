// Command zkrelay-client is a minimal demonstration of the client-side
// protocol: identity management, sealing a message for a peer, and
// polling/consuming a relay for inbound messages. It is not a chat UI.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/zkrelay/client"
	"github.com/opd-ai/zkrelay/conversation"
	"github.com/opd-ai/zkrelay/identity"
)

// cliConfig holds the parsed command-line flags for a single invocation.
type cliConfig struct {
	relayURL     string
	identityPath string
	command      string
	peerHex      string
	message      string
	ttl          uint
}

func parseCLIFlags() cliConfig {
	var cfg cliConfig

	flag.StringVar(&cfg.relayURL, "relay", "http://localhost:8080", "base URL of the relay server")
	flag.StringVar(&cfg.identityPath, "identity", "", "path to identity.json (default: keys/identity.json)")
	flag.StringVar(&cfg.command, "cmd", "whoami", "command to run: whoami, send, poll, consume")
	flag.StringVar(&cfg.peerHex, "peer", "", "recipient's long-term public key, hex (required for send)")
	flag.StringVar(&cfg.message, "message", "", "message text (required for send)")
	flag.UintVar(&cfg.ttl, "ttl", 3600, "message time-to-live in seconds")
	flag.Parse()

	return cfg
}

func main() {
	os.Exit(run(parseCLIFlags()))
}

func run(cfg cliConfig) int {
	id, err := identity.LoadOrGenerate(cfg.identityPath)
	if err != nil {
		logrus.WithError(err).Error("failed to load or generate identity")
		return 1
	}

	switch cfg.command {
	case "whoami":
		fmt.Println(id.PublicHex())
		return 0
	case "send":
		return runSend(cfg, id)
	case "poll":
		return runFetch(cfg, id, false)
	case "consume":
		return runFetch(cfg, id, true)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cfg.command)
		return 1
	}
}

func runSend(cfg cliConfig, id *identity.Identity) int {
	if cfg.peerHex == "" || cfg.message == "" {
		fmt.Fprintln(os.Stderr, "send requires -peer and -message")
		return 1
	}

	peerBytes, err := hex.DecodeString(cfg.peerHex)
	if err != nil || len(peerBytes) != 32 {
		fmt.Fprintln(os.Stderr, "peer must be 64 hex characters")
		return 1
	}
	var peerPub [32]byte
	copy(peerPub[:], peerBytes)

	c := client.New(cfg.relayURL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Send(ctx, peerPub, id.KeyPair.Public, []byte(cfg.message), int(cfg.ttl)); err != nil {
		logrus.WithError(err).Error("send failed")
		return 1
	}

	conv, err := conversation.Load("", cfg.peerHex, id.KeyPair.Private)
	if err == nil {
		conv.Append(conversation.Outbound, cfg.message, time.Now())
		_ = conv.Save("", id.KeyPair.Private)
	}

	fmt.Println("sent")
	return 0
}

func runFetch(cfg cliConfig, id *identity.Identity, destructive bool) int {
	c := client.New(cfg.relayURL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var received []client.Received
	var err error
	if destructive {
		received, err = c.Consume(ctx, id.KeyPair.Private, id.KeyPair.Public)
	} else {
		received, err = c.Poll(ctx, id.KeyPair.Private, id.KeyPair.Public)
	}
	if err != nil {
		logrus.WithError(err).Error("fetch failed")
		return 1
	}

	for _, msg := range received {
		fmt.Printf("[%s] %s\n", msg.SenderHex, msg.Plaintext)

		conv, convErr := conversation.Load("", msg.SenderHex, id.KeyPair.Private)
		if convErr == nil {
			conv.Append(conversation.Inbound, string(msg.Plaintext), msg.ReceivedAt)
			_ = conv.Save("", id.KeyPair.Private)
		}
	}

	return 0
}
