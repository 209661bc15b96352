package services

import (
	"fmt"
	"math"
	"time"

	"questledger/internal/models"
)

// maxPayout validates the reward configuration and returns the largest sum
// the quest could ever pay out, which is what gets escrowed.
func maxPayout(p QuestParams) (int64, error) {
	if p.TotalParticipantsAllowed < 1 {
		return 0, fmt.Errorf("%w: at least one participant must be allowed", ErrInvalidRewardConfig)
	}
	if p.StakeRequired < 0 {
		return 0, fmt.Errorf("%w: negative stake", ErrInvalidRewardConfig)
	}
	if p.TotalRewards != len(p.RewardAmounts) {
		return 0, fmt.Errorf("%w: %d reward amounts for %d rewards", ErrInvalidRewardConfig, len(p.RewardAmounts), p.TotalRewards)
	}
	for i, a := range p.RewardAmounts {
		if a <= 0 {
			return 0, fmt.Errorf("%w: reward %d is not positive", ErrInvalidRewardConfig, i)
		}
	}

	switch p.DistributionType {
	case models.SameAmount:
		if p.TotalRewards != 1 {
			return 0, fmt.Errorf("%w: %s takes exactly one reward amount", ErrInvalidRewardConfig, p.DistributionType)
		}
		amount := p.RewardAmounts[0]
		if amount > math.MaxInt64/int64(p.TotalParticipantsAllowed) {
			return 0, fmt.Errorf("%w: reward pool overflows", ErrInvalidRewardConfig)
		}
		return amount * int64(p.TotalParticipantsAllowed), nil

	case models.Weighted:
		if p.TotalRewards < 1 {
			return 0, fmt.Errorf("%w: %s needs at least one reward amount", ErrInvalidRewardConfig, p.DistributionType)
		}
		if p.TotalRewards > p.TotalParticipantsAllowed {
			return 0, fmt.Errorf("%w: %d rewards for %d participants", ErrInvalidRewardConfig, p.TotalRewards, p.TotalParticipantsAllowed)
		}
		var sum int64
		for _, a := range p.RewardAmounts {
			if sum > math.MaxInt64-a {
				return 0, fmt.Errorf("%w: reward pool overflows", ErrInvalidRewardConfig)
			}
			sum += a
		}
		return sum, nil

	default:
		return 0, fmt.Errorf("%w: unknown distribution type %d", ErrInvalidRewardConfig, int(p.DistributionType))
	}
}

// settle computes the payouts of rec without mutating it. Completers are
// ranked by completion order. Stakes go back to completers; stakes of
// participants who never completed are refunded to the treasury with the
// unspent escrow. Must be called with rec.mu held.
func settle(rec *questRecord, now time.Time) *models.Settlement {
	s := &models.Settlement{
		QuestID:       rec.id,
		Payouts:       make([]models.Payout, 0, len(rec.completionOrder)),
		DistributedAt: now,
	}

	for i, participant := range rec.completionOrder {
		var prize int64
		switch rec.params.DistributionType {
		case models.SameAmount:
			prize = rec.params.RewardAmounts[0]
		case models.Weighted:
			if i < len(rec.params.RewardAmounts) {
				prize = rec.params.RewardAmounts[i]
			}
		}
		stake := rec.stakes[participant]
		s.Payouts = append(s.Payouts, models.Payout{
			Participant:   participant,
			Rank:          i + 1,
			Prize:         prize,
			StakeReturned: stake,
		})
		s.TotalPaid += prize
		s.StakesReturned += stake
	}

	var forfeited int64
	for _, participant := range rec.enrolled {
		if !rec.completed[participant] {
			forfeited += rec.stakes[participant]
		}
	}
	s.Refunded = rec.fundsHeld - s.TotalPaid + forfeited
	return s
}
