package models

import "time"

// DistributionType selects how a quest's reward amounts are paid out.
type DistributionType int

const (
	// SameAmount pays every completer RewardAmounts[0].
	SameAmount DistributionType = iota
	// Weighted pays the i-th completer (by completion order) RewardAmounts[i].
	Weighted
)

func (d DistributionType) String() string {
	switch d {
	case SameAmount:
		return "SameAmount"
	case Weighted:
		return "Weighted"
	default:
		return "Unknown"
	}
}

// QuestStatus is derived from the clock and the distribution flag.
type QuestStatus string

const (
	StatusPending     QuestStatus = "pending"
	StatusOpen        QuestStatus = "open"
	StatusEnded       QuestStatus = "ended"
	StatusDistributed QuestStatus = "distributed"
)

// Quest is a read-only snapshot of a quest record held by the ledger.
type Quest struct {
	ID                       uint64           `json:"id"`
	Title                    string           `json:"title"`
	Description              string           `json:"description"`
	Creator                  string           `json:"creator,omitempty"`
	StartTime                time.Time        `json:"startTime"`
	EndTime                  time.Time        `json:"endTime"`
	DistributionType         DistributionType `json:"distributionType"`
	TotalRewards             int              `json:"totalRewards"`
	RewardAmounts            []int64          `json:"rewardAmounts"`
	TotalParticipantsAllowed int              `json:"totalParticipantsAllowed"`
	StakeRequired            int64            `json:"stakeRequired"`
	EnrolledParticipants     []string         `json:"enrolledParticipants"`
	TasksCompleted           map[string]bool  `json:"tasksCompleted"`
	CompletionOrder          []string         `json:"completionOrder"`
	Stakes                   map[string]int64 `json:"stakes"`
	PrizesDistributed        bool             `json:"prizesDistributed"`
	FundsHeld                int64            `json:"fundsHeld"`
	Status                   QuestStatus      `json:"status"`
}

// TotalParticipants is the current enrollment count.
func (q Quest) TotalParticipants() int {
	return len(q.EnrolledParticipants)
}

// EventType names a ledger state transition.
type EventType string

const (
	EventQuestCreated        EventType = "QuestCreated"
	EventParticipantEnrolled EventType = "ParticipantEnrolled"
	EventTaskCompleted       EventType = "TaskCompleted"
	EventPrizeDistributed    EventType = "PrizeDistributed"
	EventFundsRefunded       EventType = "FundsRefunded"
)

// Event is a single entry of the ledger's append-only event log.
type Event struct {
	ID          string    `json:"id"`
	Seq         uint64    `json:"seq"`
	Type        EventType `json:"event"`
	QuestID     uint64    `json:"questId"`
	Participant string    `json:"participant,omitempty"`
	Amount      int64     `json:"amount,omitempty"`
	At          time.Time `json:"at"`
}

// Payout records what one completer received from a distribution.
type Payout struct {
	Participant   string `json:"participant"`
	Rank          int    `json:"rank"`
	Prize         int64  `json:"prize"`
	StakeReturned int64  `json:"stakeReturned"`
}

// Settlement is the outcome of distributing a quest's prizes.
type Settlement struct {
	QuestID        uint64    `json:"questId"`
	Payouts        []Payout  `json:"payouts"`
	TotalPaid      int64     `json:"totalPaid"`
	StakesReturned int64     `json:"stakesReturned"`
	Refunded       int64     `json:"refunded"`
	DistributedAt  time.Time `json:"distributedAt"`
}
