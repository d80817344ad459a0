package pipeline

import (
	"sync"
	"time"

	"smmbridge/internal/models"
)

// pendingTTL bounds how long a username prompt stays answerable.
const pendingTTL = 10 * time.Minute

type pendingVerification struct {
	OrderID  string
	Command  models.CommandKind
	Expected string
	expires  time.Time
}

// pendingRegistry tracks at most one open verification per sender.
type pendingRegistry struct {
	mu      sync.Mutex
	entries map[string]pendingVerification
}

func newPendingRegistry() *pendingRegistry {
	return &pendingRegistry{entries: make(map[string]pendingVerification)}
}

func pendingKey(platform, senderID string) string {
	return platform + ":" + senderID
}

func (r *pendingRegistry) put(platform, senderID string, pv pendingVerification) {
	pv.expires = time.Now().Add(pendingTTL)
	r.mu.Lock()
	r.entries[pendingKey(platform, senderID)] = pv
	r.mu.Unlock()
}

// take removes and returns the sender's open verification, if any.
func (r *pendingRegistry) take(platform, senderID string) (pendingVerification, bool) {
	key := pendingKey(platform, senderID)
	r.mu.Lock()
	defer r.mu.Unlock()
	pv, ok := r.entries[key]
	if !ok {
		return pendingVerification{}, false
	}
	delete(r.entries, key)
	if time.Now().After(pv.expires) {
		return pendingVerification{}, false
	}
	return pv, true
}
