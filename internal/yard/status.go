package yard

type PublicationState string

const (
	Draft     PublicationState = "draft"
	Published PublicationState = "published"
	Archived  PublicationState = "archived"
)

type SaleState string

const (
	Active SaleState = "active"
	Sold   SaleState = "sold"
)

var validNext = map[PublicationState]map[PublicationState]bool{
	Draft:     {Published: true, Archived: true},
	Published: {Draft: true, Archived: true},
	Archived:  {Draft: true},
}

// CanTransition reports whether a yard may move a car from one publication
// state to another. Re-asserting the current state is allowed.
func CanTransition(from, to PublicationState) bool {
	if from == to {
		return validNext[from] != nil
	}
	return validNext[from][to]
}

// ParsePublicationState validates a client-supplied state.
func ParsePublicationState(s string) (PublicationState, bool) {
	p := PublicationState(s)
	_, ok := validNext[p]
	return p, ok
}
