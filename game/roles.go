package game

import "math/rand"

// Assignment is the result of partitioning a roster into roles. Impostors
// never appear in Decoys; decoys never hold the canonical secret.
type Assignment struct {
	Secret    string
	Impostors map[int64]struct{}
	// Decoys maps each decoy to the wrong secret it was handed. In chaos
	// games each decoy draws its own wrong secret independently.
	Decoys map[int64]string
}

// IsImpostor reports whether the player was assigned as an impostor.
func (a Assignment) IsImpostor(playerID int64) bool {
	_, ok := a.Impostors[playerID]
	return ok
}

// Assign partitions roster into roles for the mode and picks the canonical
// secret. It is pure apart from randomness and never mutates roster. The
// caller has already verified len(roster) >= mode.MinPlayers.
func Assign(roster []int64, mode *ModeConfig) Assignment {
	a := Assignment{
		Secret:    RandomLocation(),
		Impostors: make(map[int64]struct{}),
		Decoys:    make(map[int64]string),
	}

	switch mode.Variant {
	case VariantTeam:
		for _, id := range sample(roster, 2) {
			a.Impostors[id] = struct{}{}
		}
	case VariantDecoy:
		spy := roster[rand.Intn(len(roster))]
		a.Impostors[spy] = struct{}{}
		rest := without(roster, a.Impostors)
		decoy := rest[rand.Intn(len(rest))]
		a.Decoys[decoy] = RandomLocationExcept(a.Secret)
	case VariantChaos:
		spyCount := len(roster) / 3
		if spyCount < 2 {
			spyCount = 2
		}
		for _, id := range sample(roster, spyCount) {
			a.Impostors[id] = struct{}{}
		}
		rest := without(roster, a.Impostors)
		decoyCount := len(rest) / 3
		if decoyCount < 1 {
			decoyCount = 1
		}
		for _, id := range sample(rest, decoyCount) {
			a.Decoys[id] = RandomLocationExcept(a.Secret)
		}
	default: // VariantSingle
		a.Impostors[roster[rand.Intn(len(roster))]] = struct{}{}
	}

	return a
}

// sample picks n distinct ids uniformly without replacement.
func sample(ids []int64, n int) []int64 {
	shuffled := make([]int64, len(ids))
	copy(shuffled, ids)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

func without(ids []int64, exclude map[int64]struct{}) []int64 {
	var rest []int64
	for _, id := range ids {
		if _, ok := exclude[id]; !ok {
			rest = append(rest, id)
		}
	}
	return rest
}
