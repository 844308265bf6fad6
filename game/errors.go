package game

import "errors"

// Every failure the engine can hand back to a caller. All of these are
// recoverable: the transport reports them to the user and the session is
// left untouched.
var (
	ErrAlreadyActive       = errors.New("a game is already active in this room")
	ErrSessionNotFound     = errors.New("no active game in this room")
	ErrInvalidPhase        = errors.New("action not allowed in the current phase")
	ErrInvalidVote         = errors.New("invalid vote")
	ErrInsufficientPlayers = errors.New("not enough players to start")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrAlreadyJoined       = errors.New("player already joined")
	ErrNotJoined           = errors.New("player is not in the game")
	ErrRoomFull            = errors.New("room is full")
	ErrGameStarted         = errors.New("game already started")
	ErrNotAwaitingGuess    = errors.New("no guess is expected from this player")
	ErrUnknownMode         = errors.New("unknown game mode")
)
