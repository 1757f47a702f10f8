package domain_test

import (
	"testing"

	"github.com/ark-network/raffle/internal/core/domain"
	"github.com/stretchr/testify/require"
)

const entranceFee = uint64(100)

var participants = []string{"alice", "bob", "carol", "dave"}

func TestEntryLedger(t *testing.T) {
	t.Run("add entry", func(t *testing.T) {
		t.Run("valid", func(t *testing.T) {
			ledger := domain.NewEntryLedger(entranceFee)

			for i, p := range participants {
				count, err := ledger.AddEntry(p, entranceFee+uint64(i))
				require.NoError(t, err)
				require.Equal(t, i+1, count)

				participant, err := ledger.ParticipantAt(i)
				require.NoError(t, err)
				require.Equal(t, p, participant)
			}
			require.Equal(t, len(participants), ledger.TotalParticipants())
			require.Equal(t, uint64(406), ledger.TotalContributed())
		})

		t.Run("same participant twice", func(t *testing.T) {
			ledger := domain.NewEntryLedger(entranceFee)

			_, err := ledger.AddEntry("alice", entranceFee)
			require.NoError(t, err)
			count, err := ledger.AddEntry("alice", entranceFee)
			require.NoError(t, err)
			require.Equal(t, 2, count)
			require.Equal(t, 2*entranceFee, ledger.TotalContributed())
		})

		t.Run("total overflow", func(t *testing.T) {
			ledger := domain.NewEntryLedger(entranceFee)

			_, err := ledger.AddEntry("alice", ^uint64(0)-entranceFee)
			require.NoError(t, err)

			count, err := ledger.AddEntry("bob", 2*entranceFee)
			require.ErrorIs(t, err, domain.ErrContributionLimit)
			require.Zero(t, count)
			require.Equal(t, 1, ledger.TotalParticipants())
			require.Equal(t, ^uint64(0)-entranceFee, ledger.TotalContributed())

			count, err = ledger.AddEntry("bob", entranceFee)
			require.NoError(t, err)
			require.Equal(t, 2, count)
			require.Equal(t, ^uint64(0), ledger.TotalContributed())
		})

		t.Run("invalid", func(t *testing.T) {
			fixtures := []struct {
				name        string
				participant string
				amount      uint64
				closed      bool
				expectedErr error
			}{
				{
					name:        "below fee",
					participant: "alice",
					amount:      entranceFee - 1,
					expectedErr: domain.ErrInsufficientFunds,
				},
				{
					name:        "zero amount",
					participant: "alice",
					amount:      0,
					expectedErr: domain.ErrInsufficientFunds,
				},
				{
					name:        "closed ledger",
					participant: "alice",
					amount:      entranceFee,
					closed:      true,
					expectedErr: domain.ErrRoundClosed,
				},
			}

			for _, f := range fixtures {
				t.Run(f.name, func(t *testing.T) {
					ledger := domain.NewEntryLedger(entranceFee)
					if f.closed {
						ledger.Close()
					}

					count, err := ledger.AddEntry(f.participant, f.amount)
					require.ErrorIs(t, err, f.expectedErr)
					require.Zero(t, count)
					require.Zero(t, ledger.TotalParticipants())
					require.Zero(t, ledger.TotalContributed())
				})
			}

			ledger := domain.NewEntryLedger(entranceFee)
			_, err := ledger.AddEntry("", entranceFee)
			require.Error(t, err)
		})
	})

	t.Run("participant at", func(t *testing.T) {
		ledger := domain.NewEntryLedger(entranceFee)
		_, err := ledger.ParticipantAt(0)
		require.ErrorIs(t, err, domain.ErrIndexOutOfRange)

		_, err = ledger.AddEntry("alice", entranceFee)
		require.NoError(t, err)

		_, err = ledger.ParticipantAt(1)
		require.ErrorIs(t, err, domain.ErrIndexOutOfRange)
		_, err = ledger.ParticipantAt(-1)
		require.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	})

	t.Run("reset", func(t *testing.T) {
		ledger := domain.NewEntryLedger(entranceFee)
		for _, p := range participants {
			_, err := ledger.AddEntry(p, entranceFee)
			require.NoError(t, err)
		}
		ledger.Close()

		ledger.Reset()
		require.Zero(t, ledger.TotalParticipants())
		require.Zero(t, ledger.TotalContributed())
		require.False(t, ledger.Closed)

		count, err := ledger.AddEntry("alice", entranceFee)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})
}
