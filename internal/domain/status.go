package domain

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusActive    Status = "active"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transition can leave s.
// Active is not terminal: a recurring record can still be cancelled or fail.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusCancelled
}

// Settled reports whether the payment outcome of a record is already known.
func (s Status) Settled() bool {
	return s != StatusPending
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusActive, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks a move along the ledger state machine.
// One-time records go pending -> paid|failed.
// Recurring records go pending -> active|failed and active -> cancelled|failed.
func (s Status) CanTransitionTo(to Status, recurring bool) bool {
	switch s {
	case StatusPending:
		switch to {
		case StatusFailed:
			return true
		case StatusPaid:
			return !recurring
		case StatusActive:
			return recurring
		}
	case StatusActive:
		return recurring && (to == StatusCancelled || to == StatusFailed)
	}
	return false
}

// String representation (for logging)
func (s Status) String() string {
	return string(s)
}
