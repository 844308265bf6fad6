package game

import "testing"

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from Phase
		to   Phase
		ok   bool
	}{
		{PhaseModeSelect, PhaseWaiting, true},
		{PhaseWaiting, PhaseDiscussion, true},
		{PhaseDiscussion, PhaseVoting, true},
		{PhaseVoting, PhaseVoting, true}, // multi-impostor revote
		{PhaseVoting, PhaseAwaitingGuess, true},
		{PhaseAwaitingGuess, PhaseEnded, true},

		{PhaseModeSelect, PhaseDiscussion, false},
		{PhaseWaiting, PhaseVoting, false},
		{PhaseDiscussion, PhaseAwaitingGuess, false},
		{PhaseVoting, PhaseDiscussion, false},
		{PhaseAwaitingGuess, PhaseVoting, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestEveryPhaseCanAbort(t *testing.T) {
	for _, p := range []Phase{PhaseModeSelect, PhaseWaiting, PhaseDiscussion, PhaseVoting, PhaseAwaitingGuess} {
		if !p.CanTransitionTo(PhaseEnded) {
			t.Errorf("%s should be abortable into %s", p, PhaseEnded)
		}
	}
}

func TestEndedIsTerminal(t *testing.T) {
	for _, p := range []Phase{PhaseModeSelect, PhaseWaiting, PhaseDiscussion, PhaseVoting, PhaseAwaitingGuess, PhaseEnded} {
		if PhaseEnded.CanTransitionTo(p) {
			t.Errorf("Ended must not transition to %s", p)
		}
	}
}

func TestModeByName(t *testing.T) {
	mode, err := ModeByName("speed")
	if err != nil {
		t.Fatalf("speed should exist: %v", err)
	}
	if mode.MinPlayers != 3 || mode.Variant != VariantSingle {
		t.Fatalf("Unexpected speed config: %+v", mode)
	}

	if _, err := ModeByName("bogus"); err != ErrUnknownMode {
		t.Fatalf("Expected ErrUnknownMode, got %v", err)
	}
}
