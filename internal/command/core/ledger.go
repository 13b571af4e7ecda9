package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBalanceCapped is returned when a credit would push a balance over the cap.
var ErrBalanceCapped = errors.New("balance is at the cap")

// Ledger keeps per-guild point balances for /daily.
type Ledger interface {
	Add(guildID, userID string, points int) (int, error)
	Balance(guildID, userID string) int
}

// MemoryLedger is an in-process Ledger. A zero cap means unlimited.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int
	limit    int
}

func NewMemoryLedger(limit int) *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]int), limit: limit}
}

func (l *MemoryLedger) Add(guildID, userID string, points int) (int, error) {
	if guildID == "" || userID == "" {
		return 0, fmt.Errorf("ledger needs a guild and a user")
	}
	key := guildID + "/" + userID

	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.balances[key] + points
	if l.limit > 0 && next > l.limit {
		return l.balances[key], ErrBalanceCapped
	}
	l.balances[key] = next
	return next, nil
}

func (l *MemoryLedger) Balance(guildID, userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[guildID+"/"+userID]
}
