package service

import "formsearch/internal/domain"

// Phase is the lifecycle stage of one strategy's most recent request.
type Phase int

const (
	PhaseIdle    Phase = iota // no query, or state was cleared
	PhaseLoading              // request issued, not yet resolved
	PhaseLoaded               // response received
	PhaseFailed               // request failed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of one strategy. Response is set only in PhaseLoaded
// and Err only in PhaseFailed.
type State struct {
	Phase      Phase
	Response   *domain.SearchResponse
	Err        error
	Generation uint64
}

// Loading reports whether a request for this strategy is outstanding.
func (s State) Loading() bool { return s.Phase == PhaseLoading }
