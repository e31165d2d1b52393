package ports

import (
	"time"

	"github.com/bnema/greetreply/internal/domain"
)

// Notifier tells the human operator what the send protocol is about to do.
type Notifier interface {
	PendingSend(contact domain.ContactID, message string, cancelWindow time.Duration, cancelKeys []string)
	SendCancelled(contact domain.ContactID)
	Sent(contact domain.ContactID)
}

type NopNotifier struct{}

func (NopNotifier) PendingSend(domain.ContactID, string, time.Duration, []string) {}
func (NopNotifier) SendCancelled(domain.ContactID)                                {}
func (NopNotifier) Sent(domain.ContactID)                                         {}
