package nostrnotifier

import (
	"context"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/require"
)

func TestParseRecipient(t *testing.T) {
	pubkey, err := nostr.GetPublicKey(nostr.GeneratePrivateKey())
	require.NoError(t, err)

	valid, err := nip19.EncodeProfile(pubkey, []string{"wss://relay.example.com"})
	require.NoError(t, err)
	noRelays, err := nip19.EncodeProfile(pubkey, nil)
	require.NoError(t, err)
	badRelay, err := nip19.EncodeProfile(pubkey, []string{"http://relay"})
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		recipient, err := parseRecipient(valid)
		require.NoError(t, err)
		require.Equal(t, pubkey, recipient.PublicKey)
		require.Equal(t, []string{"wss://relay.example.com"}, recipient.Relays)
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []struct {
			name string
			to   any
		}{
			{"not a string", 42},
			{"plain participant", "alice"},
			{"malformed nprofile", "nprofile1invalid"},
			{"no relays", noRelays},
			{"invalid relay", badRelay},
		}
		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				recipient, err := parseRecipient(f.to)
				require.Error(t, err)
				require.Nil(t, recipient)
			})
		}

		_, err := parseRecipient("alice")
		require.ErrorIs(t, err, ErrNotNostrProfile)
	})
}

func TestMakeDirectMessage(t *testing.T) {
	recipientSec := nostr.GeneratePrivateKey()
	recipientPub, err := nostr.GetPublicKey(recipientSec)
	require.NoError(t, err)

	ev, err := makeDirectMessage(recipientPub, "you won")
	require.NoError(t, err)
	require.Equal(t, nostr.KindEncryptedDirectMessage, ev.Kind)
	require.Equal(t, recipientPub, ev.Tags.GetFirst([]string{"p"}).Value())

	ok, err := ev.CheckSignature()
	require.NoError(t, err)
	require.True(t, ok)

	sharedSecret, err := nip04.ComputeSharedSecret(ev.PubKey, recipientSec)
	require.NoError(t, err)
	message, err := nip04.Decrypt(ev.Content, sharedSecret)
	require.NoError(t, err)
	require.Equal(t, "you won", message)
}

func TestNotifyRejectsPlainParticipants(t *testing.T) {
	err := New(0).Notify(context.Background(), "alice", "you won")
	require.ErrorIs(t, err, ErrNotNostrProfile)
}
