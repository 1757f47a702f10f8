package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	UndefinedState RaffleState = iota
	OpenState
	CalculatingState
)

type RaffleState int

func (s RaffleState) String() string {
	switch s {
	case OpenState:
		return "OPEN"
	case CalculatingState:
		return "CALCULATING"
	default:
		return "UNDEFINED"
	}
}

// Payout is the prize owed to the selected winner of a round. It stays set
// until the transfer succeeds.
type Payout struct {
	RequestId   uint64
	WinnerIndex int
	Winner      string
	Prize       uint64
	Attempts    int
	LastErr     string
}

type UpkeepStatus struct {
	IsOpen     bool
	TimePassed bool
	HasBalance bool
	HasPlayers bool
}

func (s UpkeepStatus) Needed() bool {
	return s.IsOpen && s.TimePassed && s.HasBalance && s.HasPlayers
}

func (s UpkeepStatus) String() string {
	return fmt.Sprintf(
		"open: %t, time passed: %t, has balance: %t, has players: %t",
		s.IsOpen, s.TimePassed, s.HasBalance, s.HasPlayers,
	)
}

type Raffle struct {
	Id                   string
	EntranceFee          uint64
	State                RaffleState
	Round                uint64
	Gate                 IntervalGate
	Ledger               EntryLedger
	OutstandingRequestId uint64
	RecentWinner         string
	RecentPrize          uint64
	PendingPayout        *Payout
	Version              uint
	changes              []RaffleEvent
}

func NewRaffle(entranceFee uint64, interval time.Duration) *Raffle {
	return &Raffle{
		Id:          uuid.New().String(),
		EntranceFee: entranceFee,
		Gate:        IntervalGate{Interval: interval},
		Ledger:      NewEntryLedger(entranceFee),
		changes:     make([]RaffleEvent, 0),
	}
}

func NewRaffleFromEvents(events []RaffleEvent) *Raffle {
	r := &Raffle{}

	for _, event := range events {
		r.On(event, true)
	}

	r.changes = append([]RaffleEvent{}, events...)

	return r
}

func (r *Raffle) Events() []RaffleEvent {
	return r.changes
}

func (r *Raffle) On(event RaffleEvent, replayed bool) {
	switch e := event.(type) {
	case RaffleStarted:
		r.Id = e.Id
		r.State = OpenState
		r.Round = 1
		r.EntranceFee = e.EntranceFee
		r.Ledger = NewEntryLedger(e.EntranceFee)
		r.Gate = IntervalGate{Interval: e.Interval, StartTimestamp: e.Timestamp}
	case RaffleEntered:
		// live entries are already in the ledger, see Enter
		if replayed {
			r.Ledger.record(Entry{e.Participant, e.Amount})
		}
	case RandomnessRequested:
		r.State = CalculatingState
		r.Ledger.Close()
		r.OutstandingRequestId = e.RequestId
	case WinnerSelected:
		r.OutstandingRequestId = 0
		r.PendingPayout = &Payout{
			RequestId:   e.RequestId,
			WinnerIndex: e.WinnerIndex,
			Winner:      e.Winner,
			Prize:       e.Prize,
		}
	case PayoutFailed:
		if r.PendingPayout != nil {
			r.PendingPayout.Attempts++
			r.PendingPayout.LastErr = e.Err
		}
	case WinnerPicked:
		r.RecentWinner = e.Winner
		r.RecentPrize = e.Prize
		r.PendingPayout = nil
		r.OutstandingRequestId = 0
		r.Ledger.Reset()
		r.Gate.Restart(time.Unix(e.Timestamp, 0))
		r.State = OpenState
		r.Round = e.Round + 1
	}

	if replayed {
		r.Version++
	}
}

func (r *Raffle) Start(now time.Time) ([]RaffleEvent, error) {
	if r.State != UndefinedState {
		return nil, fmt.Errorf("raffle %s already started", r.Id)
	}
	if r.Gate.Interval <= 0 {
		return nil, fmt.Errorf("invalid interval, must be greater than zero")
	}

	event := RaffleStarted{
		Id:          r.Id,
		EntranceFee: r.EntranceFee,
		Interval:    r.Gate.Interval,
		Timestamp:   now.Unix(),
	}
	r.raise(event)

	return []RaffleEvent{event}, nil
}

func (r *Raffle) Enter(
	participant string, amount uint64, now time.Time,
) ([]RaffleEvent, error) {
	if r.State != OpenState {
		return nil, ErrRoundClosed
	}
	if _, err := r.Ledger.AddEntry(participant, amount); err != nil {
		return nil, err
	}

	event := RaffleEntered{
		Id:          r.Id,
		Round:       r.Round,
		Participant: participant,
		Amount:      amount,
		Timestamp:   now.Unix(),
	}
	r.raise(event)

	return []RaffleEvent{event}, nil
}

// CanEnter reports whether an entry would be accepted, without raising any
// event.
func (r *Raffle) CanEnter(participant string, amount uint64) error {
	if r.State != OpenState {
		return ErrRoundClosed
	}
	return r.Ledger.validate(participant, amount)
}

func (r *Raffle) CheckUpkeep(now time.Time) UpkeepStatus {
	return UpkeepStatus{
		IsOpen:     r.State == OpenState,
		TimePassed: r.Gate.HasElapsed(now),
		HasBalance: r.Ledger.TotalContributed() > 0,
		HasPlayers: r.Ledger.TotalParticipants() > 0,
	}
}

func (r *Raffle) StartCalculating(requestId uint64, now time.Time) ([]RaffleEvent, error) {
	if status := r.CheckUpkeep(now); !status.Needed() {
		return nil, fmt.Errorf("%w (%s)", ErrUpkeepNotNeeded, status)
	}
	if requestId == 0 {
		return nil, fmt.Errorf("invalid randomness request id")
	}

	event := RandomnessRequested{
		Id:        r.Id,
		Round:     r.Round,
		RequestId: requestId,
		Timestamp: now.Unix(),
	}
	r.raise(event)

	return []RaffleEvent{event}, nil
}

// SelectWinner maps the first random word onto the ledger and records the
// resulting payout. The prize is not transferred here.
func (r *Raffle) SelectWinner(
	requestId uint64, randomWords []uint64, now time.Time,
) ([]RaffleEvent, error) {
	if r.State != CalculatingState || r.PendingPayout != nil ||
		requestId == 0 || requestId != r.OutstandingRequestId {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRequest, requestId)
	}
	if len(randomWords) <= 0 {
		return nil, fmt.Errorf("missing random words")
	}

	count := r.Ledger.TotalParticipants()
	if count <= 0 {
		return nil, fmt.Errorf("no participants to select a winner from")
	}
	index := int(randomWords[0] % uint64(count))
	winner, err := r.Ledger.ParticipantAt(index)
	if err != nil {
		return nil, err
	}

	event := WinnerSelected{
		Id:          r.Id,
		Round:       r.Round,
		RequestId:   requestId,
		WinnerIndex: index,
		Winner:      winner,
		Prize:       r.Ledger.TotalContributed(),
		Timestamp:   now.Unix(),
	}
	r.raise(event)

	return []RaffleEvent{event}, nil
}

func (r *Raffle) FailPayout(reason error, now time.Time) ([]RaffleEvent, error) {
	if r.PendingPayout == nil {
		return nil, ErrNoPendingSettlement
	}

	errMsg := ""
	if reason != nil {
		errMsg = reason.Error()
	}
	event := PayoutFailed{
		Id:        r.Id,
		Round:     r.Round,
		Winner:    r.PendingPayout.Winner,
		Prize:     r.PendingPayout.Prize,
		Err:       errMsg,
		Timestamp: now.Unix(),
	}
	r.raise(event)

	return []RaffleEvent{event}, nil
}

// CompletePayout closes the round once the prize reached the winner and
// reopens the raffle for the next one.
func (r *Raffle) CompletePayout(now time.Time) ([]RaffleEvent, error) {
	if r.PendingPayout == nil {
		return nil, ErrNoPendingSettlement
	}

	event := WinnerPicked{
		Id:        r.Id,
		Round:     r.Round,
		Winner:    r.PendingPayout.Winner,
		Prize:     r.PendingPayout.Prize,
		Timestamp: now.Unix(),
	}
	r.raise(event)

	return []RaffleEvent{event}, nil
}

func (r *Raffle) IsOpen() bool {
	return r.State == OpenState
}

func (r *Raffle) IsCalculating() bool {
	return r.State == CalculatingState
}

func (r *Raffle) Interval() time.Duration {
	return r.Gate.Interval
}

func (r *Raffle) raise(event RaffleEvent) {
	if r.changes == nil {
		r.changes = make([]RaffleEvent, 0)
	}
	r.changes = append(r.changes, event)
	r.On(event, false)
}
