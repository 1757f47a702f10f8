package domain

import "fmt"

type Entry struct {
	Participant string
	Amount      uint64
}

// EntryLedger keeps the ordered entries of the current round. The position
// of an entry is the index used to map randomness to a winner.
type EntryLedger struct {
	EntranceFee uint64
	Entries     []Entry
	Closed      bool
}

func NewEntryLedger(entranceFee uint64) EntryLedger {
	return EntryLedger{
		EntranceFee: entranceFee,
		Entries:     make([]Entry, 0),
	}
}

// AddEntry appends the entry and returns the new number of participants.
func (l *EntryLedger) AddEntry(participant string, amount uint64) (int, error) {
	if err := l.validate(participant, amount); err != nil {
		return 0, err
	}
	l.record(Entry{participant, amount})
	return len(l.Entries), nil
}

func (l *EntryLedger) TotalParticipants() int {
	return len(l.Entries)
}

func (l *EntryLedger) ParticipantAt(index int) (string, error) {
	if index < 0 || index >= len(l.Entries) {
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return l.Entries[index].Participant, nil
}

func (l *EntryLedger) TotalContributed() uint64 {
	total := uint64(0)
	for _, e := range l.Entries {
		total += e.Amount
	}
	return total
}

func (l *EntryLedger) record(entry Entry) {
	l.Entries = append(l.Entries, entry)
}

func (l *EntryLedger) Close() {
	l.Closed = true
}

// Reset empties the ledger and reopens it for the next round.
func (l *EntryLedger) Reset() {
	l.Entries = make([]Entry, 0)
	l.Closed = false
}

func (l *EntryLedger) validate(participant string, amount uint64) error {
	if l.Closed {
		return ErrRoundClosed
	}
	if len(participant) <= 0 {
		return fmt.Errorf("missing participant")
	}
	if amount < l.EntranceFee {
		return fmt.Errorf(
			"%w: got %d, required %d", ErrInsufficientFunds, amount, l.EntranceFee,
		)
	}
	if total := l.TotalContributed(); total+amount < total {
		return fmt.Errorf("%w: total %d, amount %d", ErrContributionLimit, total, amount)
	}
	return nil
}
