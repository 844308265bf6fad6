package game

import "time"

// Variant selects the elimination policy a mode plays with.
type Variant string

const (
	VariantSingle Variant = "single-impostor"
	VariantTeam   Variant = "team-impostors"
	VariantDecoy  Variant = "impostor-plus-decoy"
	VariantChaos  Variant = "chaos-multi"
)

// ModeConfig is immutable and shared between all sessions playing the mode.
type ModeConfig struct {
	Name           string
	Title          string
	Description    string
	DiscussionTime time.Duration
	VotingTime     time.Duration
	GuessTime      time.Duration
	MinPlayers     int
	Variant        Variant
}

// DefaultMaxPlayers caps the roster regardless of mode. Overridable per
// engine instance through configuration.
const DefaultMaxPlayers = 12

// Modes is the mode registry. Durations come from the original product
// configuration.
var Modes = map[string]*ModeConfig{
	"normal": {
		Name:           "normal",
		Title:          "Normal Mode",
		Description:    "5 min discussion, standard rules",
		DiscussionTime: 300 * time.Second,
		VotingTime:     60 * time.Second,
		GuessTime:      30 * time.Second,
		MinPlayers:     3,
		Variant:        VariantSingle,
	},
	"speed": {
		Name:           "speed",
		Title:          "Speed Round",
		Description:    "2 min discussion, 30s voting",
		DiscussionTime: 120 * time.Second,
		VotingTime:     30 * time.Second,
		GuessTime:      20 * time.Second,
		MinPlayers:     3,
		Variant:        VariantSingle,
	},
	"marathon": {
		Name:           "marathon",
		Title:          "Marathon Mode",
		Description:    "10 min discussion for deep strategy",
		DiscussionTime: 600 * time.Second,
		VotingTime:     90 * time.Second,
		GuessTime:      45 * time.Second,
		MinPlayers:     4,
		Variant:        VariantSingle,
	},
	"team_spy": {
		Name:           "team_spy",
		Title:          "Team Spy",
		Description:    "2 spies vs civilians (6+ players)",
		DiscussionTime: 300 * time.Second,
		VotingTime:     60 * time.Second,
		GuessTime:      30 * time.Second,
		MinPlayers:     6,
		Variant:        VariantTeam,
	},
	"double_agent": {
		Name:           "double_agent",
		Title:          "Double Agent",
		Description:    "Spy + agent with wrong location",
		DiscussionTime: 300 * time.Second,
		VotingTime:     60 * time.Second,
		GuessTime:      30 * time.Second,
		MinPlayers:     4,
		Variant:        VariantDecoy,
	},
	"chaos": {
		Name:           "chaos",
		Title:          "Chaos Mode",
		Description:    "Multiple spies and double agents",
		DiscussionTime: 360 * time.Second,
		VotingTime:     75 * time.Second,
		GuessTime:      40 * time.Second,
		MinPlayers:     8,
		Variant:        VariantChaos,
	},
}

// ModeByName looks up a mode configuration.
func ModeByName(name string) (*ModeConfig, error) {
	mode, ok := Modes[name]
	if !ok {
		return nil, ErrUnknownMode
	}
	return mode, nil
}
