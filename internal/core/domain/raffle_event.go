package domain

import "time"

const RaffleTopic = "raffle"

type EventType int

const (
	EventTypeUndefined EventType = iota
	EventTypeRaffleStarted
	EventTypeRaffleEntered
	EventTypeRandomnessRequested
	EventTypeWinnerSelected
	EventTypePayoutFailed
	EventTypeWinnerPicked
)

func (t EventType) String() string {
	switch t {
	case EventTypeRaffleStarted:
		return "raffle_started"
	case EventTypeRaffleEntered:
		return "raffle_entered"
	case EventTypeRandomnessRequested:
		return "randomness_requested"
	case EventTypeWinnerSelected:
		return "winner_selected"
	case EventTypePayoutFailed:
		return "payout_failed"
	case EventTypeWinnerPicked:
		return "winner_picked"
	default:
		return "undefined"
	}
}

type RaffleEvent interface {
	GetTopic() string
	GetType() EventType
}

func (e RaffleStarted) GetTopic() string       { return RaffleTopic }
func (e RaffleEntered) GetTopic() string       { return RaffleTopic }
func (e RandomnessRequested) GetTopic() string { return RaffleTopic }
func (e WinnerSelected) GetTopic() string      { return RaffleTopic }
func (e PayoutFailed) GetTopic() string        { return RaffleTopic }
func (e WinnerPicked) GetTopic() string        { return RaffleTopic }

func (e RaffleStarted) GetType() EventType       { return EventTypeRaffleStarted }
func (e RaffleEntered) GetType() EventType       { return EventTypeRaffleEntered }
func (e RandomnessRequested) GetType() EventType { return EventTypeRandomnessRequested }
func (e WinnerSelected) GetType() EventType      { return EventTypeWinnerSelected }
func (e PayoutFailed) GetType() EventType        { return EventTypePayoutFailed }
func (e WinnerPicked) GetType() EventType        { return EventTypeWinnerPicked }

type RaffleStarted struct {
	Id          string
	EntranceFee uint64
	Interval    time.Duration
	Timestamp   int64
}

type RaffleEntered struct {
	Id          string
	Round       uint64
	Participant string
	Amount      uint64
	Timestamp   int64
}

type RandomnessRequested struct {
	Id        string
	Round     uint64
	RequestId uint64
	Timestamp int64
}

type WinnerSelected struct {
	Id          string
	Round       uint64
	RequestId   uint64
	WinnerIndex int
	Winner      string
	Prize       uint64
	Timestamp   int64
}

type PayoutFailed struct {
	Id        string
	Round     uint64
	Winner    string
	Prize     uint64
	Err       string
	Timestamp int64
}

type WinnerPicked struct {
	Id        string
	Round     uint64
	Winner    string
	Prize     uint64
	Timestamp int64
}
