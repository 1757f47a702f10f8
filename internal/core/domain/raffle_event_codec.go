package domain

import (
	"encoding/json"
	"fmt"
)

type eventEnvelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodeEvent serializes the event together with its type so that it can be
// restored with DecodeEvent.
func EncodeEvent(event RaffleEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %s", err)
	}
	return json.Marshal(eventEnvelope{event.GetType(), data})
}

func DecodeEvent(buf []byte) (RaffleEvent, error) {
	envelope := eventEnvelope{}
	if err := json.Unmarshal(buf, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %s", err)
	}

	switch envelope.Type {
	case EventTypeRaffleStarted:
		return decode[RaffleStarted](envelope.Data)
	case EventTypeRaffleEntered:
		return decode[RaffleEntered](envelope.Data)
	case EventTypeRandomnessRequested:
		return decode[RandomnessRequested](envelope.Data)
	case EventTypeWinnerSelected:
		return decode[WinnerSelected](envelope.Data)
	case EventTypePayoutFailed:
		return decode[PayoutFailed](envelope.Data)
	case EventTypeWinnerPicked:
		return decode[WinnerPicked](envelope.Data)
	default:
		return nil, fmt.Errorf("unknown event type %d", envelope.Type)
	}
}

func decode[T RaffleEvent](data []byte) (RaffleEvent, error) {
	var event T
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %T: %s", event, err)
	}
	return event, nil
}
