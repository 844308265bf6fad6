package game

// Phase is a discrete stage of a session's lifecycle. Each phase has its own
// set of legal actions; anything else fails with ErrInvalidPhase.
type Phase string

const (
	PhaseModeSelect    Phase = "mode_select"
	PhaseWaiting       Phase = "waiting"
	PhaseDiscussion    Phase = "discussion"
	PhaseVoting        Phase = "voting"
	PhaseAwaitingGuess Phase = "awaiting_guess"
	PhaseEnded         Phase = "ended"
)

func (p Phase) String() string {
	return string(p)
}

// transitions is the forward-only phase graph. Voting may loop back into
// itself when a multi-impostor round eliminates an impostor but teammates
// remain. Every phase may be aborted into Ended; Ended has no exits because
// the session is removed on entry.
var transitions = map[Phase][]Phase{
	PhaseModeSelect:    {PhaseWaiting, PhaseEnded},
	PhaseWaiting:       {PhaseDiscussion, PhaseEnded},
	PhaseDiscussion:    {PhaseVoting, PhaseEnded},
	PhaseVoting:        {PhaseVoting, PhaseAwaitingGuess, PhaseEnded},
	PhaseAwaitingGuess: {PhaseEnded},
	PhaseEnded:         {},
}

// CanTransitionTo reports whether moving from p to target is legal.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range transitions[p] {
		if next == target {
			return true
		}
	}
	return false
}
