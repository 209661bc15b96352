package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"questledger/internal/models"
)

// EventSink receives every event after it is appended to the log. Sinks are
// called synchronously and must not call back into the ledger.
type EventSink interface {
	Publish(ev models.Event)
}

// EventSinkFunc adapts a plain function to EventSink.
type EventSinkFunc func(ev models.Event)

func (f EventSinkFunc) Publish(ev models.Event) { f(ev) }

// EventLog is the ledger's append-only record of state transitions.
type EventLog struct {
	mu     sync.RWMutex
	seq    uint64
	events []models.Event
	byID   map[uint64][]int // questID -> indexes into events
	sinks  []EventSink
}

func newEventLog() *EventLog {
	return &EventLog{byID: make(map[uint64][]int)}
}

// Subscribe registers a sink for future events.
func (l *EventLog) Subscribe(sink EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, sink)
}

func (l *EventLog) append(typ models.EventType, questID uint64, participant string, amount int64, at time.Time) models.Event {
	l.mu.Lock()
	l.seq++
	ev := models.Event{
		ID:          uuid.NewString(),
		Seq:         l.seq,
		Type:        typ,
		QuestID:     questID,
		Participant: participant,
		Amount:      amount,
		At:          at,
	}
	l.byID[questID] = append(l.byID[questID], len(l.events))
	l.events = append(l.events, ev)
	sinks := append([]EventSink(nil), l.sinks...)
	l.mu.Unlock()

	for _, s := range sinks {
		s.Publish(ev)
	}
	return ev
}

// ForQuest returns the events emitted for one quest, oldest first.
func (l *EventLog) ForQuest(questID uint64) []models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.byID[questID]
	out := make([]models.Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.events[i])
	}
	return out
}

// All returns every event in emission order.
func (l *EventLog) All() []models.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Event(nil), l.events...)
}
