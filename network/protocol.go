package network

// Client -> server message ids.
const (
	MsgTypeHeartbeat      = 1
	MsgTypeAuth           = 2
	MsgTypeCreateSession  = 101
	MsgTypeSelectMode     = 102
	MsgTypeJoinGame       = 103
	MsgTypeLeaveGame      = 104
	MsgTypeStartGame      = 105
	MsgTypeEndGame        = 106
	MsgTypeStartVoting    = 201
	MsgTypeCastVote       = 202
	MsgTypeSubmitGuess    = 203
	MsgTypeGetStats       = 401
	MsgTypeGetLeaderboard = 402
)

// Server -> client message ids.
const (
	MsgTypeError          = 300
	MsgTypeSessionCreated = 301
	MsgTypeModeSelected   = 302
	MsgTypePlayerJoined   = 303
	MsgTypePlayerLeft     = 304
	MsgTypeHostChanged    = 305
	MsgTypeRoleAssigned   = 306
	MsgTypeDiscussion     = 307
	MsgTypeBallot         = 308
	MsgTypeVoteProgress   = 309
	MsgTypeElimination    = 310
	MsgTypeGuessPrompt    = 311
	MsgTypeGuessResult    = 312
	MsgTypeGameEnded      = 313
	MsgTypeGameClosed     = 314
	MsgTypeAchievements   = 315
	MsgTypeVoteReceipt    = 316
	MsgTypeStatsResult    = 317
	MsgTypeLeaderboard    = 318
)

// AuthRequest binds the connection to a player identity.
type AuthRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

type CreateSessionRequest struct {
	RoomID string `json:"room_id"`
}

type SelectModeRequest struct {
	RoomID string `json:"room_id"`
	Mode   string `json:"mode"`
}

type RoomRequest struct {
	RoomID string `json:"room_id"`
}

type CastVoteRequest struct {
	RoomID   string `json:"room_id"`
	TargetID int64  `json:"target_id"`
}

type SubmitGuessRequest struct {
	RoomID string `json:"room_id"`
	Guess  string `json:"guess"`
}

type StatsRequest struct {
	UserID int64 `json:"user_id"`
}

type LeaderboardRequest struct {
	Limit int `json:"limit"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
