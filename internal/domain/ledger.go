package domain

import "time"

// ReplyLedger remembers when each contact last received a committed reply.
// It lives for the process lifetime and is never evicted.
type ReplyLedger struct {
	last map[ContactID]time.Time
}

func NewReplyLedger() *ReplyLedger {
	return &ReplyLedger{last: map[ContactID]time.Time{}}
}

func (l *ReplyLedger) LastReply(contact ContactID) (time.Time, bool) {
	at, ok := l.last[contact]
	return at, ok
}

// Remaining returns how long contact must still wait before it may receive
// another reply. Zero means the contact is eligible now.
func (l *ReplyLedger) Remaining(contact ContactID, now time.Time, interval time.Duration) time.Duration {
	at, ok := l.last[contact]
	if !ok {
		return 0
	}

	elapsed := now.Sub(at)
	if elapsed >= interval {
		return 0
	}

	return interval - elapsed
}

func (l *ReplyLedger) Record(contact ContactID, at time.Time) {
	l.last[contact] = at
}

func (l *ReplyLedger) Len() int {
	return len(l.last)
}
