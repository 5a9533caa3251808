package domain

import "fmt"

type OutcomeKind int

const (
	OutcomeSent OutcomeKind = iota
	OutcomeUserNotFound
	OutcomeNoToken
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSent:
		return "sent"
	case OutcomeUserNotFound:
		return "user_not_found"
	case OutcomeNoToken:
		return "no_token"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of dispatching one created notification.
// MessageID is set for OutcomeSent, Err for OutcomeFailed.
type Outcome struct {
	Kind      OutcomeKind
	MessageID string
	Err       error
}

func Sent(messageID string) Outcome { return Outcome{Kind: OutcomeSent, MessageID: messageID} }

func UserNotFound() Outcome { return Outcome{Kind: OutcomeUserNotFound} }

func NoToken() Outcome { return Outcome{Kind: OutcomeNoToken} }

func Failed(err error) Outcome { return Outcome{Kind: OutcomeFailed, Err: err} }
