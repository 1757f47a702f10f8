package handlers

import (
	"github.com/ark-network/raffle/internal/core/application"
	"github.com/ark-network/raffle/internal/core/domain"
)

type payout struct {
	RequestId   uint64 `json:"requestId"`
	WinnerIndex int    `json:"winnerIndex"`
	Winner      string `json:"winner"`
	Prize       uint64 `json:"prize"`
	Attempts    int    `json:"attempts"`
	LastError   string `json:"lastError,omitempty"`
}

type raffleInfo struct {
	Id                   string  `json:"id"`
	State                string  `json:"state"`
	Round                uint64  `json:"round"`
	EntranceFee          uint64  `json:"entranceFee"`
	Interval             int64   `json:"interval"`
	LatestTimestamp      int64   `json:"latestTimestamp"`
	NextUpkeepIn         int64   `json:"nextUpkeepIn"`
	NumberOfPlayers      int     `json:"numberOfPlayers"`
	TotalContributed     uint64  `json:"totalContributed"`
	CustodyBalance       uint64  `json:"custodyBalance"`
	OutstandingRequestId uint64  `json:"outstandingRequestId,omitempty"`
	RecentWinner         string  `json:"recentWinner,omitempty"`
	RecentPrize          uint64  `json:"recentPrize,omitempty"`
	PendingPayout        *payout `json:"pendingPayout,omitempty"`
}

type upkeepStatus struct {
	UpkeepNeeded bool `json:"upkeepNeeded"`
	IsOpen       bool `json:"isOpen"`
	TimePassed   bool `json:"timePassed"`
	HasBalance   bool `json:"hasBalance"`
	HasPlayers   bool `json:"hasPlayers"`
}

type randomnessRequest struct {
	Id          uint64   `json:"id"`
	RaffleId    string   `json:"raffleId"`
	Round       uint64   `json:"round"`
	Status      string   `json:"status"`
	RandomWords []uint64 `json:"randomWords"`
	RequestedAt int64    `json:"requestedAt"`
	FulfilledAt int64    `json:"fulfilledAt,omitempty"`
}

type winner struct {
	Round     uint64 `json:"round"`
	Winner    string `json:"winner"`
	Prize     uint64 `json:"prize"`
	Timestamp int64  `json:"timestamp"`
}

type enterRequest struct {
	Participant string `json:"participant"`
	Amount      uint64 `json:"amount"`
}

type fulfillRequest struct {
	RandomWords []uint64 `json:"randomWords"`
}

type depositRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

func toRaffleInfo(info *application.RaffleInfo) raffleInfo {
	var p *payout
	if info.PendingPayout != nil {
		p = &payout{
			RequestId:   info.PendingPayout.RequestId,
			WinnerIndex: info.PendingPayout.WinnerIndex,
			Winner:      info.PendingPayout.Winner,
			Prize:       info.PendingPayout.Prize,
			Attempts:    info.PendingPayout.Attempts,
			LastError:   info.PendingPayout.LastErr,
		}
	}

	return raffleInfo{
		Id:                   info.Id,
		State:                info.State,
		Round:                info.Round,
		EntranceFee:          info.EntranceFee,
		Interval:             int64(info.Interval.Seconds()),
		LatestTimestamp:      info.LatestTimestamp,
		NextUpkeepIn:         int64(info.NextUpkeepIn.Seconds()),
		NumberOfPlayers:      info.NumberOfPlayers,
		TotalContributed:     info.TotalContributed,
		CustodyBalance:       info.CustodyBalance,
		OutstandingRequestId: info.OutstandingRequestId,
		RecentWinner:         info.RecentWinner,
		RecentPrize:          info.RecentPrize,
		PendingPayout:        p,
	}
}

func toUpkeepStatus(needed bool, status domain.UpkeepStatus) upkeepStatus {
	return upkeepStatus{
		UpkeepNeeded: needed,
		IsOpen:       status.IsOpen,
		TimePassed:   status.TimePassed,
		HasBalance:   status.HasBalance,
		HasPlayers:   status.HasPlayers,
	}
}

func toRandomnessRequest(r *domain.RandomnessRequest) randomnessRequest {
	return randomnessRequest{
		Id:          r.Id,
		RaffleId:    r.RaffleId,
		Round:       r.Round,
		Status:      r.Status.String(),
		RandomWords: r.RandomWords,
		RequestedAt: r.RequestedAt,
		FulfilledAt: r.FulfilledAt,
	}
}

func toWinners(winners []domain.WinnerPicked) []winner {
	list := make([]winner, 0, len(winners))
	for _, w := range winners {
		list = append(list, winner{w.Round, w.Winner, w.Prize, w.Timestamp})
	}
	return list
}
