package service

import (
	"sync"
	"time"
)

// The issuer reports offset-less timestamps in its own local timezone.
var issuerZone = time.FixedZone("UTC+8", 8*60*60)

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseIssuerTime converts an issuer-reported timestamp to UTC. Timestamps
// with explicit offset information are converted directly; offset-less ones
// are interpreted as UTC+8 first. Malformed input yields nil: the field is
// dropped rather than failing the enclosing operation.
func parseIssuerTime(value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, *value); err == nil {
		utc := t.UTC()
		return &utc
	}

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, *value, issuerZone); err == nil {
			utc := t.UTC()
			return &utc
		}
	}

	return nil
}

// cardLocks serializes reconciliation per card secret so concurrent
// activation calls for the same card cannot both reach the issuer. The map
// only ever holds as many entries as distinct cards touched; at admin scale
// it is never shrunk.
type cardLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCardLocks() *cardLocks {
	return &cardLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *cardLocks) acquire(cardID string) *sync.Mutex {
	l.mu.Lock()
	m, ok := l.locks[cardID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[cardID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m
}
