package game

import "math/rand"

// Side identifies the winning camp of a finished game.
type Side string

const (
	SideNone      Side = ""
	SideImpostors Side = "impostors"
	SideCivilians Side = "civilians"
)

// RoundResult is the resolution of one completed voting round.
type RoundResult struct {
	// Eliminated is the voted-out player, 0 when nobody was eliminated
	// (zero votes cast).
	Eliminated   int64
	WasImpostor  bool
	Tied         bool
	VoteCounts   map[int64]int
	// Revote means an impostor fell but teammates remain: the session
	// clears its votes and arms a fresh voting round.
	Revote bool
	// GuessPhase means the surviving single impostor gets a time-boxed
	// chance to guess the secret before the game ends.
	GuessPhase bool
	// Winner is set iff the round terminates the game.
	Winner Side
}

// CountVotes tallies votes per target. Order-independent.
func CountVotes(votes map[int64]int64) map[int64]int {
	counts := make(map[int64]int, len(votes))
	for _, target := range votes {
		counts[target]++
	}
	return counts
}

// pickEliminated returns the target with the strict vote maximum. Ties are
// broken uniformly at random among the tied set; picking "first seen" would
// bias toward insertion order, which is a documented fairness requirement.
func pickEliminated(counts map[int64]int) (int64, bool) {
	maxVotes := 0
	for _, n := range counts {
		if n > maxVotes {
			maxVotes = n
		}
	}
	var top []int64
	for id, n := range counts {
		if n == maxVotes {
			top = append(top, id)
		}
	}
	if len(top) == 1 {
		return top[0], false
	}
	return top[rand.Intn(len(top))], true
}

// EliminationResolver turns a closed ballot into a round result. One
// implementation per mode variant.
type EliminationResolver interface {
	Resolve(votes map[int64]int64, impostors map[int64]struct{}) RoundResult
}

// ResolverFor returns the elimination policy for a variant.
func ResolverFor(v Variant) EliminationResolver {
	switch v {
	case VariantTeam, VariantChaos:
		return multiResolver{}
	default:
		return singleResolver{}
	}
}

// singleResolver covers single-impostor and impostor-plus-decoy games: one
// elimination decides everything, and a surviving impostor earns a guess.
type singleResolver struct{}

func (singleResolver) Resolve(votes map[int64]int64, impostors map[int64]struct{}) RoundResult {
	res := RoundResult{VoteCounts: CountVotes(votes)}
	if len(votes) == 0 {
		// Impostor-favorable default: a silent room loses.
		res.Winner = SideImpostors
		return res
	}
	res.Eliminated, res.Tied = pickEliminated(res.VoteCounts)
	if _, ok := impostors[res.Eliminated]; ok {
		res.WasImpostor = true
		res.Winner = SideCivilians
		return res
	}
	res.GuessPhase = true
	return res
}

// multiResolver covers team and chaos games: impostors are hunted down one
// round at a time, and eliminating a civilian hands the game to the
// impostors immediately.
type multiResolver struct{}

func (multiResolver) Resolve(votes map[int64]int64, impostors map[int64]struct{}) RoundResult {
	res := RoundResult{VoteCounts: CountVotes(votes)}
	if len(votes) == 0 {
		res.Winner = SideImpostors
		return res
	}
	res.Eliminated, res.Tied = pickEliminated(res.VoteCounts)
	if _, ok := impostors[res.Eliminated]; !ok {
		res.Winner = SideImpostors
		return res
	}
	res.WasImpostor = true
	if len(impostors) == 1 {
		// That was the last one.
		res.Winner = SideCivilians
		return res
	}
	res.Revote = true
	return res
}
