package models

// PageState is the lifecycle state of one listing page task
type PageState string

const (
	PageStatePending     PageState = "pending"      // Created, waiting for a gate permit
	PageStateFetching    PageState = "fetching"     // Listing GET in flight
	PageStateExtracting  PageState = "extracting"   // Parsing topic entries
	PageStateResolving   PageState = "resolving"    // Detail pages being resolved
	PageStateFailedFetch PageState = "failed_fetch" // Listing fetch failed, result is empty
	PageStateDone        PageState = "done"         // Terminal
)

// String implements fmt.Stringer for logging
func (s PageState) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

var pageTransitions = map[PageState][]PageState{
	PageStatePending:     {PageStateFetching, PageStateFailedFetch}, // Permit wait cancelled
	PageStateFetching:    {PageStateExtracting, PageStateFailedFetch},
	PageStateExtracting:  {PageStateResolving},
	PageStateResolving:   {PageStateDone},
	PageStateFailedFetch: {PageStateDone},
}

// CanTransition reports whether a page task may move from one state to the next
func CanTransition(from, to PageState) bool {
	for _, next := range pageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for the done state
func (s PageState) IsTerminal() bool {
	return s == PageStateDone
}
