package alert

// Status is an alert's lifecycle position.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTransmitting Status = "transmitting"
	StatusOpen         Status = "open"
	StatusUpdating     Status = "updating"
	StatusCanceling    Status = "canceling"
	StatusCanceled     Status = "canceled"
	StatusExpired      Status = "expired"
)

// lifecycle is the forward order. expired shares the terminal rank with
// canceled but is only reachable from the active statuses.
var lifecycle = map[Status]int{
	StatusPending:      0,
	StatusTransmitting: 1,
	StatusOpen:         2,
	StatusUpdating:     3,
	StatusCanceling:    4,
	StatusCanceled:     5,
	StatusExpired:      5,
}

// Valid reports whether s is a lifecycle status.
func (s Status) Valid() bool {
	_, ok := lifecycle[s]
	return ok
}

// Before reports whether s precedes other in the lifecycle.
func (s Status) Before(other Status) bool {
	return s.Valid() && other.Valid() && lifecycle[s] < lifecycle[other]
}

// Done reports whether s is terminal.
func (s Status) Done() bool {
	return s == StatusCanceled || s == StatusExpired
}

// transition is the outcome of classifyTransition.
type transition int

const (
	transitionRejected transition = iota
	transitionForward
	transitionRollback
)

func (t transition) String() string {
	switch t {
	case transitionForward:
		return "forward"
	case transitionRollback:
		return "rollback"
	default:
		return "rejected"
	}
}

// classifyTransition is the only place that decides whether from -> to is
// allowed.
func classifyTransition(from, to Status) transition {
	if !from.Valid() || !to.Valid() || from == to {
		return transitionRejected
	}

	switch {
	case from == StatusTransmitting && to == StatusPending:
		return transitionRollback
	case from == StatusCanceling && to == StatusOpen:
		return transitionRollback
	}

	if to == StatusExpired {
		switch from {
		case StatusOpen, StatusUpdating, StatusCanceling:
			return transitionForward
		}
		return transitionRejected
	}

	if lifecycle[to] > lifecycle[from] {
		return transitionForward
	}
	return transitionRejected
}
