package services

import "errors"

// Errors returned by the ledger. None of them are transient; callers match
// them with errors.Is.
var (
	ErrInvalidTimeRange       = errors.New("start time must be before end time")
	ErrInvalidRewardConfig    = errors.New("invalid reward configuration")
	ErrInsufficientFunds      = errors.New("insufficient funds to cover rewards")
	ErrQuestNotFound          = errors.New("quest not found")
	ErrQuestFull              = errors.New("quest is full")
	ErrAlreadyEnrolled        = errors.New("participant already enrolled")
	ErrQuestNotOpen           = errors.New("quest is not open")
	ErrNotEnrolled            = errors.New("participant not enrolled")
	ErrAlreadyCompleted       = errors.New("task already completed")
	ErrAlreadyDistributed     = errors.New("prizes already distributed")
	ErrNoEligibleParticipants = errors.New("no eligible participants")
	ErrInsufficientStake      = errors.New("insufficient stake")
	ErrInvalidParticipant     = errors.New("invalid participant")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrNotDistributed         = errors.New("prizes not distributed yet")
)
