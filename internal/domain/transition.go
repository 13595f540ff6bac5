package domain

// Transition is a resolved navigation edge, ready for execution:
// actions are concrete objects, not ids.
type Transition struct {
	EdgeID          string
	FromNodeID      string
	ToNodeID        string
	FromLabel       string
	ToLabel         string
	Actions         []*Action
	RetryActions    []*Action
	FailureActions  []*Action
	FinalWaitTimeMS int
	Description     string
}
