package domain

type ListingStatus string

const (
	StatusActive   ListingStatus = "active"
	StatusArchived ListingStatus = "archived"
	StatusSold     ListingStatus = "sold"
)

// statusTransitions is the complete lifecycle table. A pair absent from the
// table is forbidden; sold is terminal.
var statusTransitions = map[ListingStatus][]ListingStatus{
	StatusActive:   {StatusArchived, StatusSold},
	StatusArchived: {StatusActive},
	StatusSold:     {},
}

func (s ListingStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the lifecycle table allows s -> next.
// Self-transitions are never allowed.
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
