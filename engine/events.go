package engine

// Scope says who an event is meant for. The engine never talks to the
// transport; it only describes the notifications the transport should
// deliver.
type Scope int

const (
	// ScopeRoom events go to everyone in the room.
	ScopeRoom Scope = iota
	// ScopePlayer events are private (role reveals, guess prompts).
	ScopePlayer
)

// Event types.
const (
	EventSessionCreated = "session_created"
	EventModeSelected   = "mode_selected"
	EventPlayerJoined   = "player_joined"
	EventPlayerLeft     = "player_left"
	EventHostChanged    = "host_changed"
	EventRoleAssigned   = "role_assigned"
	EventDiscussion     = "discussion_started"
	EventBallot         = "ballot"
	EventVoteProgress   = "vote_progress"
	EventElimination    = "elimination"
	EventGuessPrompt    = "guess_prompt"
	EventGuessResult    = "guess_result"
	EventGameEnded      = "game_ended"
	EventGameClosed     = "game_closed"
	EventAchievements   = "achievements_unlocked"
)

// Event is one side-effect description for the transport collaborator.
type Event struct {
	Type     string
	Scope    Scope
	PlayerID int64 // set for ScopePlayer
	Payload  interface{}
}

// Sink receives events produced by timer-driven transitions, which have no
// caller to return to. Synchronous API calls return their events directly.
type Sink func(roomID string, events []Event)

// VoteReceipt is the synchronous answer to CastVote. The call that observes
// VotingComplete is the one that already closed the round; callers must not
// trigger a second close.
type VoteReceipt struct {
	Accepted       bool
	VotingComplete bool
}

type ModeInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MinPlayers  int    `json:"min_players"`
}

type SessionCreatedPayload struct {
	RoomID string     `json:"room_id"`
	HostID int64      `json:"host_id"`
	Modes  []ModeInfo `json:"modes"`
}

type ModeSelectedPayload struct {
	Mode        string `json:"mode"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MinPlayers  int    `json:"min_players"`
}

type RosterChangePayload struct {
	PlayerID   int64  `json:"player_id"`
	Name       string `json:"name"`
	Players    int    `json:"players"`
	MinPlayers int    `json:"min_players"`
	Ready      bool   `json:"ready"`
}

type HostChangedPayload struct {
	HostID int64  `json:"host_id"`
	Name   string `json:"name"`
}

type RolePayload struct {
	Role string `json:"role"` // "impostor" or "civilian"
	// Secret is the location shown to the player. Decoys see a wrong one
	// and cannot tell.
	Secret string `json:"secret,omitempty"`
	// Partners lists fellow impostors in team and chaos games.
	Partners []string `json:"partners,omitempty"`
}

type DiscussionPayload struct {
	Mode    string `json:"mode"`
	Seconds int    `json:"seconds"`
}

type Candidate struct {
	PlayerID int64  `json:"player_id"`
	Name     string `json:"name"`
}

type BallotPayload struct {
	Round      int         `json:"round"`
	Seconds    int         `json:"seconds"`
	Candidates []Candidate `json:"candidates"`
}

type VoteProgressPayload struct {
	Votes int `json:"votes"`
	Total int `json:"total"`
}

type EliminationPayload struct {
	PlayerID    int64  `json:"player_id"`
	Name        string `json:"name"`
	Votes       int    `json:"votes"`
	Tied        bool   `json:"tied"`
	WasImpostor bool   `json:"was_impostor"`
}

type GuessPromptPayload struct {
	Seconds int `json:"seconds"`
}

type GuessResultPayload struct {
	Guess   string `json:"guess"`
	Correct bool   `json:"correct"`
}

type GameEndedPayload struct {
	Winner    string      `json:"winner"`
	Secret    string      `json:"secret"`
	Impostors []Candidate `json:"impostors"`
}

type GameClosedPayload struct {
	Reason string `json:"reason"`
}

type AchievementsPayload struct {
	Names []string `json:"names"`
}
