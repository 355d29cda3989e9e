package booking

type Status string

const (
	StatusRequested Status = "requested"
	StatusSearching Status = "searching"
	StatusAssigned  Status = "assigned"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusRequested, StatusSearching, StatusAssigned, StatusConfirmed,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition may leave this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

// transitionTable is the single source of truth for the lifecycle graph.
// Anything not listed here is rejected with a TransitionError.
var transitionTable = map[Status][]Status{
	StatusRequested: {StatusSearching, StatusCancelled},
	StatusSearching: {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitionTable[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ServiceKind string

const (
	KindNursing       ServiceKind = "nursing"
	KindPhysiotherapy ServiceKind = "physiotherapy"
	KindCarePackage   ServiceKind = "care_package"
)

func (k ServiceKind) String() string {
	return string(k)
}

func (k ServiceKind) IsValid() bool {
	switch k {
	case KindNursing, KindPhysiotherapy, KindCarePackage:
		return true
	default:
		return false
	}
}

// Actor identifies who initiated a cancellation.
type Actor string

const (
	ActorClient    Actor = "client"
	ActorCaregiver Actor = "caregiver"
	ActorSystem    Actor = "system"
)

func (a Actor) IsValid() bool {
	switch a {
	case ActorClient, ActorCaregiver, ActorSystem:
		return true
	default:
		return false
	}
}
