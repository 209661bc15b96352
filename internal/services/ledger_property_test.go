package services

import (
	"errors"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"questledger/internal/models"
)

// TestEnrollmentNeverExceedsCapacity verifies the participant cap.
// Property: after any number of enrollment attempts, count <= allowed and
// every rejected attempt past the cap is ErrQuestFull.
func TestEnrollmentNeverExceedsCapacity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("enrollment count is bounded by capacity", prop.ForAll(
		func(capacity, attempts int) bool {
			ledger, _ := newTestLedger(1 << 40)
			p := sameAmountQuest()
			p.TotalParticipantsAllowed = capacity
			id, err := ledger.CreateQuest(p)
			if err != nil {
				return false
			}

			for i := 0; i < attempts; i++ {
				err := ledger.EnrollInQuest(id, "p"+strconv.Itoa(i), 0)
				if i < capacity && err != nil {
					return false
				}
				if i >= capacity && !errors.Is(err, ErrQuestFull) {
					return false
				}
			}

			q, _ := ledger.Quest(id)
			want := attempts
			if want > capacity {
				want = capacity
			}
			return q.TotalParticipants() == want
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

// TestPayoutNeverExceedsEscrow verifies the escrow bound and the treasury
// balance after distribution.
// Property: TotalPaid <= FundsHeld and treasury + paid + returned stakes ==
// initial treasury + all stakes.
func TestPayoutNeverExceedsEscrow(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("payouts are bounded by escrow and conserve funds", prop.ForAll(
		func(weighted bool, amounts []int64, capacity, completers int, stake int64) bool {
			const initial = int64(1 << 40)
			ledger, _ := newTestLedger(initial)

			p := sameAmountQuest()
			p.TotalParticipantsAllowed = capacity
			if weighted {
				if len(amounts) > capacity {
					amounts = amounts[:capacity]
				}
				p.DistributionType = models.Weighted
				p.TotalRewards = len(amounts)
				p.RewardAmounts = amounts
			} else {
				p.RewardAmounts = amounts[:1]
			}

			id, err := ledger.CreateQuest(p)
			if err != nil {
				return false
			}
			for i := 0; i < capacity; i++ {
				if err := ledger.EnrollInQuest(id, "p"+strconv.Itoa(i), stake); err != nil {
					return false
				}
			}
			if completers > capacity {
				completers = capacity
			}
			for i := 0; i < completers; i++ {
				if err := ledger.CompleteTask(id, "p"+strconv.Itoa(i)); err != nil {
					return false
				}
			}

			q, _ := ledger.Quest(id)
			s, err := ledger.DistributePrizes(id)
			if completers == 0 {
				return errors.Is(err, ErrNoEligibleParticipants)
			}
			if err != nil {
				return false
			}

			allStakes := stake * int64(capacity)
			return s.TotalPaid <= q.FundsHeld &&
				ledger.Treasury()+s.TotalPaid+s.StakesReturned == initial+allStakes
		},
		gen.Bool(),
		gen.SliceOfN(5, gen.Int64Range(1, 1000)),
		gen.IntRange(1, 8),
		gen.IntRange(0, 8),
		gen.Int64Range(0, 50),
	))

	properties.TestingRun(t)
}
