package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_SweepOnce(t *testing.T) {
	clock := &fakeClock{t: testNow}
	service := NewQuestService(1000, WithClock(clock.Now))

	ledger := service.Ledger("tenant-a")
	ended, err := ledger.CreateQuest(sameAmountQuest())
	require.NoError(t, err)
	require.NoError(t, ledger.EnrollInQuest(ended, "participant1", 0))
	require.NoError(t, ledger.CompleteTask(ended, "participant1"))

	nobody, err := ledger.CreateQuest(sameAmountQuest())
	require.NoError(t, err)
	require.NoError(t, ledger.EnrollInQuest(nobody, "participant1", 0))

	p := sameAmountQuest()
	p.EndTime = testNow.Add(3 * time.Hour)
	running, err := ledger.CreateQuest(p)
	require.NoError(t, err)
	require.NoError(t, ledger.EnrollInQuest(running, "participant1", 0))
	require.NoError(t, ledger.CompleteTask(running, "participant1"))

	sw := NewSweeper(service, time.Minute)
	sw.now = clock.Now

	assert.Equal(t, 0, sw.SweepOnce(context.Background()), "nothing has ended yet")

	clock.Set(testNow.Add(2 * time.Hour))
	assert.Equal(t, 1, sw.SweepOnce(context.Background()))

	q, err := ledger.Quest(ended)
	require.NoError(t, err)
	assert.True(t, q.PrizesDistributed)

	q, err = ledger.Quest(nobody)
	require.NoError(t, err)
	assert.False(t, q.PrizesDistributed, "quests without completers are left alone")

	q, err = ledger.Quest(running)
	require.NoError(t, err)
	assert.False(t, q.PrizesDistributed)

	assert.Equal(t, 0, sw.SweepOnce(context.Background()), "second sweep is a no-op")
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	service := NewQuestService(0)
	sw := NewSweeper(service, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestQuestService_TenantsAreIsolated(t *testing.T) {
	service := NewQuestService(100)

	a := service.Ledger("a")
	b := service.Ledger("b")
	require.NotSame(t, a, b)
	assert.Same(t, a, service.Ledger("a"))

	_, err := a.CreateQuest(QuestParams{
		Title:                    "only in a",
		StartTime:                time.Now().Add(-time.Hour),
		EndTime:                  time.Now().Add(time.Hour),
		DistributionType:         0,
		TotalRewards:             1,
		RewardAmounts:            []int64{10},
		TotalParticipantsAllowed: 1,
	})
	require.NoError(t, err)

	assert.Len(t, a.Quests(), 1)
	assert.Empty(t, b.Quests())
	assert.Equal(t, int64(90), a.Treasury())
	assert.Equal(t, int64(100), b.Treasury())
	assert.Equal(t, []string{"a", "b"}, service.Tenants())
	service.Ledger("a")
	assert.Equal(t, []string{"a", "b"}, service.Tenants(), "repeat lookups reuse the tenant's ledger")
}
