package orders

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// PAID and CANCELLED are terminal: no transition leaves them.
var validNext = map[Status]map[Status]bool{
	StatusCreated:   {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {StatusCancelled: true},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
