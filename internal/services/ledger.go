package services

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/logger"

	"questledger/internal/models"
)

// QuestParams holds the creator-supplied configuration of a new quest.
type QuestParams struct {
	Title                    string
	Description              string
	Creator                  string
	StartTime                time.Time
	EndTime                  time.Time
	DistributionType         models.DistributionType
	TotalRewards             int
	RewardAmounts            []int64
	TotalParticipantsAllowed int
	StakeRequired            int64
}

// questRecord is the ledger-owned mutable state of one quest.
type questRecord struct {
	mu sync.Mutex

	id     uint64
	params QuestParams

	enrolled        []string
	enrolledSet     map[string]struct{}
	completed       map[string]bool
	completionOrder []string
	stakes          map[string]int64

	fundsHeld   int64
	distributed bool
	settlement  *models.Settlement
}

// Ledger owns quest records, the treasury, and the event log. Every mutation
// goes through its methods; each one is serialized per quest.
type Ledger struct {
	mu     sync.RWMutex
	quests map[uint64]*questRecord
	nextID uint64

	treasuryMu sync.Mutex
	treasury   int64

	events *EventLog
	now    func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithTreasury seeds the ledger's balance.
func WithTreasury(amount int64) Option {
	return func(l *Ledger) { l.treasury = amount }
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		quests: make(map[uint64]*questRecord),
		events: newEventLog(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Events exposes the ledger's event log.
func (l *Ledger) Events() *EventLog {
	return l.events
}

// Treasury returns the unescrowed balance.
func (l *Ledger) Treasury() int64 {
	l.treasuryMu.Lock()
	defer l.treasuryMu.Unlock()
	return l.treasury
}

// Deposit adds funds to the treasury.
func (l *Ledger) Deposit(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	l.treasuryMu.Lock()
	defer l.treasuryMu.Unlock()
	if amount > math.MaxInt64-l.treasury {
		return l.treasury, fmt.Errorf("%w: deposit of %d overflows treasury", ErrInvalidAmount, amount)
	}
	l.treasury += amount
	return l.treasury, nil
}

// CreateQuest validates params, escrows the maximum payout from the treasury
// and registers a new quest. It returns the quest's id.
func (l *Ledger) CreateQuest(p QuestParams) (uint64, error) {
	if !p.StartTime.Before(p.EndTime) {
		return 0, ErrInvalidTimeRange
	}
	escrow, err := maxPayout(p)
	if err != nil {
		return 0, err
	}

	l.treasuryMu.Lock()
	if l.treasury < escrow {
		have := l.treasury
		l.treasuryMu.Unlock()
		return 0, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, escrow, have)
	}
	l.treasury -= escrow
	l.treasuryMu.Unlock()

	p.RewardAmounts = append([]int64(nil), p.RewardAmounts...)
	rec := &questRecord{
		params:      p,
		enrolledSet: make(map[string]struct{}),
		completed:   make(map[string]bool),
		stakes:      make(map[string]int64),
		fundsHeld:   escrow,
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	l.mu.Lock()
	l.nextID++
	rec.id = l.nextID
	l.quests[rec.id] = rec
	l.mu.Unlock()

	l.events.append(models.EventQuestCreated, rec.id, p.Creator, escrow, l.now())
	logger.Infof("quest %d created: %q, %s, escrow %d", rec.id, p.Title, p.DistributionType, escrow)
	return rec.id, nil
}

// EnrollInQuest adds participant to the quest, holding stake until the
// quest is distributed. Enrollment stays open from creation until EndTime.
func (l *Ledger) EnrollInQuest(questID uint64, participant string, stake int64) error {
	rec, err := l.lookup(questID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.distributed {
		return fmt.Errorf("quest %d: %w", questID, ErrAlreadyDistributed)
	}
	now := l.now()
	if !now.Before(rec.params.EndTime) {
		return fmt.Errorf("quest %d: %w", questID, ErrQuestNotOpen)
	}
	if participant == "" {
		return ErrInvalidParticipant
	}
	if _, ok := rec.enrolledSet[participant]; ok {
		return fmt.Errorf("quest %d, participant %s: %w", questID, participant, ErrAlreadyEnrolled)
	}
	if len(rec.enrolled) >= rec.params.TotalParticipantsAllowed {
		return fmt.Errorf("quest %d: %w", questID, ErrQuestFull)
	}
	if stake < 0 || stake < rec.params.StakeRequired {
		return fmt.Errorf("quest %d: %w: need %d, got %d", questID, ErrInsufficientStake, rec.params.StakeRequired, stake)
	}

	rec.enrolled = append(rec.enrolled, participant)
	rec.enrolledSet[participant] = struct{}{}
	rec.stakes[participant] = stake

	l.events.append(models.EventParticipantEnrolled, questID, participant, stake, now)
	return nil
}

// CompleteTask marks participant's task as done. The first completer ranks
// first for weighted distribution.
func (l *Ledger) CompleteTask(questID uint64, participant string) error {
	rec, err := l.lookup(questID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.distributed {
		return fmt.Errorf("quest %d: %w", questID, ErrAlreadyDistributed)
	}
	now := l.now()
	if !now.Before(rec.params.EndTime) {
		return fmt.Errorf("quest %d: %w", questID, ErrQuestNotOpen)
	}
	if _, ok := rec.enrolledSet[participant]; !ok {
		return fmt.Errorf("quest %d, participant %s: %w", questID, participant, ErrNotEnrolled)
	}
	if rec.completed[participant] {
		return fmt.Errorf("quest %d, participant %s: %w", questID, participant, ErrAlreadyCompleted)
	}

	rec.completed[participant] = true
	rec.completionOrder = append(rec.completionOrder, participant)

	l.events.append(models.EventTaskCompleted, questID, participant, 0, now)
	return nil
}

// DistributePrizes pays the quest's completers, refunds the remainder to
// the treasury and finalizes the quest.
func (l *Ledger) DistributePrizes(questID uint64) (*models.Settlement, error) {
	rec, err := l.lookup(questID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.distributed {
		return nil, fmt.Errorf("quest %d: %w", questID, ErrAlreadyDistributed)
	}
	if len(rec.completionOrder) == 0 {
		return nil, fmt.Errorf("quest %d: %w", questID, ErrNoEligibleParticipants)
	}

	now := l.now()
	s := settle(rec, now)
	if s.TotalPaid > rec.fundsHeld {
		// Unreachable: maxPayout bounds every policy.
		return nil, fmt.Errorf("quest %d: payout %d exceeds escrow %d", questID, s.TotalPaid, rec.fundsHeld)
	}

	if s.Refunded > 0 {
		l.treasuryMu.Lock()
		if s.Refunded > math.MaxInt64-l.treasury {
			l.treasuryMu.Unlock()
			return nil, fmt.Errorf("quest %d: %w: refund of %d overflows treasury", questID, ErrInvalidAmount, s.Refunded)
		}
		l.treasury += s.Refunded
		l.treasuryMu.Unlock()
	}
	rec.distributed = true
	rec.settlement = s

	for _, p := range s.Payouts {
		if p.Prize > 0 {
			l.events.append(models.EventPrizeDistributed, questID, p.Participant, p.Prize, now)
		}
	}
	if s.Refunded > 0 {
		l.events.append(models.EventFundsRefunded, questID, "", s.Refunded, now)
	}
	logger.Infof("quest %d distributed: %d payouts, paid %d, refunded %d", questID, len(s.Payouts), s.TotalPaid, s.Refunded)

	out := *s
	out.Payouts = append([]models.Payout(nil), s.Payouts...)
	return &out, nil
}

// Settlement returns the recorded settlement of a distributed quest.
func (l *Ledger) Settlement(questID uint64) (*models.Settlement, error) {
	rec, err := l.lookup(questID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.settlement == nil {
		return nil, fmt.Errorf("quest %d: %w", questID, ErrNotDistributed)
	}
	out := *rec.settlement
	out.Payouts = append([]models.Payout(nil), rec.settlement.Payouts...)
	return &out, nil
}

// Quest returns a snapshot of the quest.
func (l *Ledger) Quest(questID uint64) (models.Quest, error) {
	rec, err := l.lookup(questID)
	if err != nil {
		return models.Quest{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshot(l.now()), nil
}

// Quests returns snapshots of every quest ordered by id.
func (l *Ledger) Quests() []models.Quest {
	l.mu.RLock()
	recs := make([]*questRecord, 0, len(l.quests))
	for _, rec := range l.quests {
		recs = append(recs, rec)
	}
	l.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].id < recs[j].id })

	now := l.now()
	out := make([]models.Quest, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		out = append(out, rec.snapshot(now))
		rec.mu.Unlock()
	}
	return out
}

func (l *Ledger) lookup(questID uint64) (*questRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.quests[questID]
	if !ok {
		return nil, fmt.Errorf("quest %d: %w", questID, ErrQuestNotFound)
	}
	return rec, nil
}

// snapshot must be called with rec.mu held.
func (rec *questRecord) snapshot(now time.Time) models.Quest {
	q := models.Quest{
		ID:                       rec.id,
		Title:                    rec.params.Title,
		Description:              rec.params.Description,
		Creator:                  rec.params.Creator,
		StartTime:                rec.params.StartTime,
		EndTime:                  rec.params.EndTime,
		DistributionType:         rec.params.DistributionType,
		TotalRewards:             rec.params.TotalRewards,
		RewardAmounts:            append([]int64(nil), rec.params.RewardAmounts...),
		TotalParticipantsAllowed: rec.params.TotalParticipantsAllowed,
		StakeRequired:            rec.params.StakeRequired,
		EnrolledParticipants:     append([]string{}, rec.enrolled...),
		TasksCompleted:           make(map[string]bool, len(rec.enrolled)),
		CompletionOrder:          append([]string{}, rec.completionOrder...),
		Stakes:                   make(map[string]int64, len(rec.stakes)),
		PrizesDistributed:        rec.distributed,
		FundsHeld:                rec.fundsHeld,
	}
	for _, p := range rec.enrolled {
		q.TasksCompleted[p] = rec.completed[p]
	}
	for p, s := range rec.stakes {
		q.Stakes[p] = s
	}

	switch {
	case rec.distributed:
		q.Status = models.StatusDistributed
	case now.Before(rec.params.StartTime):
		q.Status = models.StatusPending
	case now.Before(rec.params.EndTime):
		q.Status = models.StatusOpen
	default:
		q.Status = models.StatusEnded
	}
	return q
}
