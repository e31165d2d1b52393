package domain

type OutcomeKind string

const (
	OutcomeNoWindow          OutcomeKind = "no_window"
	OutcomeSwitchFailed      OutcomeKind = "switch_failed"
	OutcomeNoEligibleContact OutcomeKind = "no_eligible_contact"
	OutcomeReplied           OutcomeKind = "replied"
	OutcomeSendCancelled     OutcomeKind = "send_cancelled"
	OutcomeError             OutcomeKind = "error"
)

// CycleOutcome is the tagged result of one orchestration cycle.
type CycleOutcome struct {
	Kind    OutcomeKind
	Contact ContactID
	Err     error
}

func NoWindow() CycleOutcome          { return CycleOutcome{Kind: OutcomeNoWindow} }
func SwitchFailed() CycleOutcome      { return CycleOutcome{Kind: OutcomeSwitchFailed} }
func NoEligibleContact() CycleOutcome { return CycleOutcome{Kind: OutcomeNoEligibleContact} }

func Replied(contact ContactID) CycleOutcome {
	return CycleOutcome{Kind: OutcomeReplied, Contact: contact}
}

func SendCancelled(contact ContactID) CycleOutcome {
	return CycleOutcome{Kind: OutcomeSendCancelled, Contact: contact}
}

func Failed(err error) CycleOutcome {
	return CycleOutcome{Kind: OutcomeError, Err: err}
}

func (o CycleOutcome) String() string {
	switch o.Kind {
	case OutcomeReplied, OutcomeSendCancelled:
		return string(o.Kind) + "(" + string(o.Contact) + ")"
	case OutcomeError:
		if o.Err != nil {
			return string(o.Kind) + "(" + o.Err.Error() + ")"
		}
		return string(o.Kind)
	default:
		return string(o.Kind)
	}
}
