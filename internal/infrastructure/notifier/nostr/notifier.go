package nostrnotifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ark-network/raffle/internal/core/ports"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
	"github.com/nbd-wtf/go-nostr/nip19"
	log "github.com/sirupsen/logrus"
)

const nprofilePrefix = "nprofile"

var ErrNotNostrProfile = errors.New("recipient is not a nostr profile")

// notifier sends NIP-04 encrypted direct messages to participants that
// entered the raffle with a NIP-19 nprofile as identifier.
type notifier struct {
	timeout time.Duration
}

func New(timeout time.Duration) ports.Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &notifier{timeout}
}

func (n *notifier) Notify(ctx context.Context, to any, message string) error {
	recipient, err := parseRecipient(to)
	if err != nil {
		return err
	}

	ev, err := makeDirectMessage(recipient.PublicKey, message)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var wg sync.WaitGroup
	published := atomic.Bool{}
	for _, url := range recipient.Relays {
		wg.Add(1)
		go func(relayURL string) {
			defer wg.Done()

			relay, err := nostr.RelayConnect(ctx, relayURL)
			if err != nil {
				log.WithError(err).Warnf("failed to connect to relay %s", relayURL)
				return
			}
			defer relay.Close()

			if err := relay.Publish(ctx, *ev); err != nil {
				log.WithError(err).Warnf("failed to publish to relay %s", relayURL)
				return
			}
			published.Store(true)
		}(url)
	}
	wg.Wait()

	if !published.Load() {
		return fmt.Errorf("failed to publish to any relay")
	}
	return nil
}

func parseRecipient(to any) (*nostr.ProfilePointer, error) {
	str, ok := to.(string)
	if !ok || !strings.HasPrefix(str, nprofilePrefix) {
		return nil, ErrNotNostrProfile
	}

	prefix, result, err := nip19.Decode(str)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nostr profile: %w", err)
	}
	if prefix != nprofilePrefix {
		return nil, fmt.Errorf("invalid NIP-19 prefix: %s", prefix)
	}
	recipient, ok := result.(nostr.ProfilePointer)
	if !ok {
		return nil, fmt.Errorf("invalid NIP-19 result: %v", result)
	}

	if !nostr.IsValidPublicKey(recipient.PublicKey) {
		return nil, fmt.Errorf("invalid nostr public key: %s", recipient.PublicKey)
	}
	if len(recipient.Relays) <= 0 {
		return nil, fmt.Errorf("invalid nostr profile: at least one relay is required")
	}
	for _, relay := range recipient.Relays {
		if !nostr.IsValidRelayURL(relay) {
			return nil, fmt.Errorf("invalid relay URL: %s", relay)
		}
	}
	return &recipient, nil
}

// makeDirectMessage encrypts the message with an ephemeral key, so that
// notifications can't be linked to the raffle operator.
func makeDirectMessage(pubkey, message string) (*nostr.Event, error) {
	ephemeralSec := nostr.GeneratePrivateKey()
	ephemeralPub, err := nostr.GetPublicKey(ephemeralSec)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral keypair: %w", err)
	}

	sharedSecret, err := nip04.ComputeSharedSecret(pubkey, ephemeralSec)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shared secret: %w", err)
	}
	content, err := nip04.Encrypt(message, sharedSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt message for %s: %w", pubkey, err)
	}

	ev := &nostr.Event{
		PubKey:    ephemeralPub,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      nostr.KindEncryptedDirectMessage,
		Tags:      nostr.Tags{{"p", pubkey}},
		Content:   content,
	}
	if err := ev.Sign(ephemeralSec); err != nil {
		return nil, fmt.Errorf("failed to sign event: %w", err)
	}
	return ev, nil
}
