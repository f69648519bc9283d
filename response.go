package authorization

import "fmt"

type Reason string

const (
	ReasonOK                 Reason = "OK"
	ReasonRouteForbidden     Reason = "ROUTE_FORBIDDEN"
	ReasonSelfMismatch       Reason = "SELF_MISMATCH"
	ReasonInvariantViolation Reason = "INVARIANT_VIOLATION"
)

// Decision is the outcome of a single authorization check. It is
// computed per request or operation and never persisted.
type Decision struct {
	Allowed bool    `json:"allowed"`
	Reason  Reason  `json:"reason"`
	Message string  `json:"message"`
	Decider *string `json:"decider,omitempty"`
}

func allow(message string, decider *string) Decision {
	return Decision{Allowed: true, Reason: ReasonOK, Message: message, Decider: decider}
}

func deny(reason Reason, message string, decider *string) Decision {
	return Decision{Allowed: false, Reason: reason, Message: message, Decider: decider}
}

func (d Decision) Denied() bool {
	return !d.Allowed
}

// Err returns nil for an allowing decision and a *DecisionError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DecisionError{Decision: d}
}

func (d Decision) String() string {
	decider := "nil"
	if d.Decider != nil {
		decider = *d.Decider
	}
	return fmt.Sprintf("Decision{Allowed: %t, Reason: %s, Message: %q, Decider: %s}", d.Allowed, d.Reason, d.Message, decider)
}

func stringPtr(s string) *string {
	return &s
}
