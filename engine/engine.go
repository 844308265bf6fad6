// Package engine is the game session engine: it owns the lifecycle of every
// room's session and exposes the operations a transport calls on behalf of
// players. All engine state mutation happens under the session store's
// per-room lock; timers re-check phase at fire time and die silently when
// the session has already moved on.
package engine

import (
	"time"

	"github.com/wfunc/spyserver/game"
	"github.com/wfunc/spyserver/logger"
	"github.com/wfunc/spyserver/models"
	"github.com/wfunc/spyserver/monitor"
	"github.com/wfunc/spyserver/session"
	"github.com/wfunc/spyserver/stats"
	"github.com/wfunc/spyserver/timer"
)

type Engine struct {
	store      *session.Store
	sched      *timer.Scheduler
	recorder   *stats.Recorder
	mon        *monitor.Monitor
	sink       Sink
	admins     map[int64]struct{}
	maxPlayers int
}

type Option func(*Engine)

// WithAdmins grants the given user ids host-level control over every room.
func WithAdmins(ids []int64) Option {
	return func(e *Engine) {
		for _, id := range ids {
			e.admins[id] = struct{}{}
		}
	}
}

// WithMaxPlayers overrides the roster capacity.
func WithMaxPlayers(n int) Option {
	return func(e *Engine) { e.maxPlayers = n }
}

// WithMonitor attaches metrics.
func WithMonitor(m *monitor.Monitor) Option {
	return func(e *Engine) { e.mon = m }
}

func New(store *session.Store, sched *timer.Scheduler, recorder *stats.Recorder, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		sched:      sched,
		recorder:   recorder,
		admins:     make(map[int64]struct{}),
		maxPlayers: game.DefaultMaxPlayers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetSink registers the receiver for timer-driven events.
func (e *Engine) SetSink(sink Sink) {
	e.sink = sink
}

func (e *Engine) emit(roomID string, events []Event) {
	if e.sink != nil && len(events) > 0 {
		e.sink(roomID, events)
	}
}

// CreateSession opens a new session with host as its first player.
func (e *Engine) CreateSession(roomID string, hostID int64, hostName string) ([]Event, error) {
	if err := e.store.Create(roomID, hostID, hostName); err != nil {
		return nil, err
	}
	if e.mon != nil {
		e.mon.SetActiveSessions(e.store.Len())
	}
	logger.Log.Infof("room %s: session created by %d", roomID, hostID)

	modes := make([]ModeInfo, 0, len(game.Modes))
	for _, m := range game.Modes {
		modes = append(modes, ModeInfo{
			Name:        m.Name,
			Title:       m.Title,
			Description: m.Description,
			MinPlayers:  m.MinPlayers,
		})
	}
	return []Event{{
		Type:  EventSessionCreated,
		Scope: ScopeRoom,
		Payload: SessionCreatedPayload{
			RoomID: roomID,
			HostID: hostID,
			Modes:  modes,
		},
	}}, nil
}

// SelectMode fixes the session's mode and opens the lobby.
func (e *Engine) SelectMode(roomID, modeName string) ([]Event, error) {
	mode, err := game.ModeByName(modeName)
	if err != nil {
		return nil, err
	}

	var events []Event
	err = e.store.Mutate(roomID, func(s *session.Session) error {
		if err := s.Transition(game.PhaseWaiting); err != nil {
			return err
		}
		s.Mode = mode
		events = append(events, Event{
			Type:  EventModeSelected,
			Scope: ScopeRoom,
			Payload: ModeSelectedPayload{
				Mode:        mode.Name,
				Title:       mode.Title,
				Description: mode.Description,
				MinPlayers:  mode.MinPlayers,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Join adds a player to the lobby.
func (e *Engine) Join(roomID string, playerID int64, name string) ([]Event, error) {
	var events []Event
	err := e.store.Mutate(roomID, func(s *session.Session) error {
		switch s.Phase {
		case game.PhaseWaiting:
		case game.PhaseModeSelect:
			return game.ErrInvalidPhase
		default:
			return game.ErrGameStarted
		}
		if s.HasPlayer(playerID) {
			return game.ErrAlreadyJoined
		}
		if len(s.Roster) >= e.maxPlayers {
			return game.ErrRoomFull
		}
		s.Roster = append(s.Roster, session.Player{ID: playerID, Name: name})
		events = append(events, Event{
			Type:  EventPlayerJoined,
			Scope: ScopeRoom,
			Payload: RosterChangePayload{
				PlayerID:   playerID,
				Name:       name,
				Players:    len(s.Roster),
				MinPlayers: s.Mode.MinPlayers,
				Ready:      len(s.Roster) >= s.Mode.MinPlayers,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Leave removes a player from the lobby. The host role is handed to the
// oldest remaining member; the session closes when the room empties.
func (e *Engine) Leave(roomID string, playerID int64) ([]Event, error) {
	var events []Event
	var closed bool
	err := e.store.Mutate(roomID, func(s *session.Session) error {
		if !s.HasPlayer(playerID) {
			return game.ErrNotJoined
		}
		if s.Phase != game.PhaseWaiting {
			return game.ErrGameStarted
		}
		name := s.PlayerName(playerID)
		s.RemovePlayer(playerID)
		events = append(events, Event{
			Type:  EventPlayerLeft,
			Scope: ScopeRoom,
			Payload: RosterChangePayload{
				PlayerID:   playerID,
				Name:       name,
				Players:    len(s.Roster),
				MinPlayers: s.Mode.MinPlayers,
				Ready:      len(s.Roster) >= s.Mode.MinPlayers,
			},
		})
		if len(s.Roster) == 0 {
			closed = true
			events = append(events, Event{
				Type:    EventGameClosed,
				Scope:   ScopeRoom,
				Payload: GameClosedPayload{Reason: "no players left"},
			})
			return nil
		}
		if s.Host == playerID {
			s.Host = s.Roster[0].ID
			events = append(events, Event{
				Type:  EventHostChanged,
				Scope: ScopeRoom,
				Payload: HostChangedPayload{
					HostID: s.Host,
					Name:   s.Roster[0].Name,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if closed {
		e.teardown(roomID)
	}
	return events, nil
}

// Begin assigns roles and the secret and starts the discussion clock. Only
// the host (or an admin) may start the game.
func (e *Engine) Begin(roomID string, requesterID int64) ([]Event, error) {
	var events []Event
	var discussion time.Duration
	err := e.store.Mutate(roomID, func(s *session.Session) error {
		if !e.authorized(s, requesterID) {
			return game.ErrNotAuthorized
		}
		if s.Phase != game.PhaseWaiting {
			return game.ErrInvalidPhase
		}
		// The roster check belongs to the caller of Assign, not inside it.
		if len(s.Roster) < s.Mode.MinPlayers {
			return game.ErrInsufficientPlayers
		}
		if err := s.Transition(game.PhaseDiscussion); err != nil {
			return err
		}

		assignment := game.Assign(s.RosterIDs(), s.Mode)
		s.Secret = assignment.Secret
		s.Impostors = assignment.Impostors
		s.Decoys = assignment.Decoys
		s.Votes = make(map[int64]int64)
		s.Round = 0
		s.StartedAt = time.Now()

		events = append(events, e.roleEvents(s)...)
		events = append(events, Event{
			Type:  EventDiscussion,
			Scope: ScopeRoom,
			Payload: DiscussionPayload{
				Mode:    s.Mode.Name,
				Seconds: int(s.Mode.DiscussionTime.Seconds()),
			},
		})
		discussion = s.Mode.DiscussionTime
		logger.Log.Infof("room %s: game started, %d players, %d impostors",
			roomID, len(s.Roster), len(s.Impostors))
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.sched.Arm(roomID, timer.PurposeDiscussion, discussion, func() {
		e.discussionExpired(roomID)
	})
	return events, nil
}

func (e *Engine) roleEvents(s *session.Session) []Event {
	events := make([]Event, 0, len(s.Roster))
	for _, p := range s.Roster {
		var payload RolePayload
		switch {
		case s.IsImpostor(p.ID):
			payload.Role = "impostor"
			for other := range s.Impostors {
				if other != p.ID {
					payload.Partners = append(payload.Partners, s.PlayerName(other))
				}
			}
		default:
			payload.Role = "civilian"
			if wrong, ok := s.Decoys[p.ID]; ok {
				// A decoy gets a wrong location in a civilian envelope.
				payload.Secret = wrong
			} else {
				payload.Secret = s.Secret
			}
		}
		events = append(events, Event{
			Type:     EventRoleAssigned,
			Scope:    ScopePlayer,
			PlayerID: p.ID,
			Payload:  payload,
		})
	}
	return events
}

// StartVoting manually ends discussion and opens the ballot. The discussion
// timer left behind fires into a session that is no longer in Discussion
// and goes silent.
func (e *Engine) StartVoting(roomID string) ([]Event, error) {
	events, err := e.openBallot(roomID)
	if err != nil {
		return nil, err
	}
	e.sched.Cancel(roomID, timer.PurposeDiscussion)
	return events, nil
}

func (e *Engine) discussionExpired(roomID string) {
	events, err := e.openBallot(roomID)
	if err != nil {
		// The session advanced or died while the timer was in flight.
		return
	}
	e.emit(roomID, events)
}

func (e *Engine) openBallot(roomID string) ([]Event, error) {
	var events []Event
	var voting time.Duration
	var round int
	err := e.store.Mutate(roomID, func(s *session.Session) error {
		if s.Phase != game.PhaseDiscussion {
			return game.ErrInvalidPhase
		}
		if err := s.Transition(game.PhaseVoting); err != nil {
			return err
		}
		s.Votes = make(map[int64]int64)
		s.Round++
		round = s.Round
		events = append(events, ballotEvent(s))
		voting = s.Mode.VotingTime
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.sched.Arm(roomID, timer.PurposeVoting, voting, func() {
		e.votingExpired(roomID, round)
	})
	return events, nil
}

func ballotEvent(s *session.Session) Event {
	candidates := make([]Candidate, len(s.Roster))
	for i, p := range s.Roster {
		candidates[i] = Candidate{PlayerID: p.ID, Name: p.Name}
	}
	return Event{
		Type:  EventBallot,
		Scope: ScopeRoom,
		Payload: BallotPayload{
			Round:      s.Round,
			Seconds:    int(s.Mode.VotingTime.Seconds()),
			Candidates: candidates,
		},
	}
}

// CastVote records one vote. The call that completes the ballot closes the
// round in the same critical section, so the close runs exactly once no
// matter how callers race with the voting timer.
func (e *Engine) CastVote(roomID string, voterID, targetID int64) (VoteReceipt, []Event, error) {
	var receipt VoteReceipt
	var events []Event
	var after []func()
	err := e.store.Mutate(roomID, func(s *session.Session) error {
		if s.Phase != game.PhaseVoting {
			return game.ErrInvalidVote
		}
		if !s.HasPlayer(voterID) || !s.HasPlayer(targetID) {
			return game.ErrInvalidVote
		}
		if _, voted := s.Votes[voterID]; voted {
			return game.ErrInvalidVote
		}

		s.Votes[voterID] = targetID
		receipt.Accepted = true
		receipt.VotingComplete = len(s.Votes) == len(s.Roster)
		events = append(events, Event{
			Type:  EventVoteProgress,
			Scope: ScopeRoom,
			Payload: VoteProgressPayload{
				Votes: len(s.Votes),
				Total: len(s.Roster),
			},
		})
		if receipt.VotingComplete {
			evs, post := e.closeBallotLocked(s)
			events = append(events, evs...)
			after = append(after, post...)
		}
		return nil
	})
	if err != nil {
		return receipt, nil, err
	}
	if e.mon != nil {
		e.mon.IncVotesReceived()
	}
	for _, fn := range after {
		fn()
	}
	return receipt, events, nil
}

// votingExpired closes the round the timer was armed for. The phase check
// alone cannot tell voting rounds apart on the Voting -> Voting loop: a
// callback already launched when the completing vote opens the next round
// would see Voting again and kill the fresh ballot. The round guard makes
// such a callback a silent no-op.
func (e *Engine) votingExpired(roomID string, round int) {
	var events []Event
	var after []func()
	err := e.store.Mutate(roomID, func(s *session.Session) error {
		if s.Phase != game.PhaseVoting || s.Round != round {
			// All votes arrived first, the game moved to a later round, or
			// it was aborted.
			return game.ErrInvalidPhase
		}
		events, after = e.closeBallotLocked(s)
		return nil
	})
	if err != nil {
		return
	}
	for _, fn := range after {
		fn()
	}
	e.emit(roomID, events)
}

// closeBallotLocked resolves the round. Must run with the room lock held;
// the returned closures (timer arming, teardown) run after it is released.
func (e *Engine) closeBallotLocked(s *session.Session) ([]Event, []func()) {
	roomID := s.RoomID
	var events []Event
	var after []func()

	resolver := game.ResolverFor(s.Mode.Variant)
	res := resolver.Resolve(s.Votes, s.Impostors)

	names := make(map[int64]string, len(s.Roster))
	for _, p := range s.Roster {
		names[p.ID] = p.Name
	}
	e.recorder.RecordVotes(s.Votes, s.Impostors, names)

	if res.Eliminated != 0 {
		events = append(events, Event{
			Type:  EventElimination,
			Scope: ScopeRoom,
			Payload: EliminationPayload{
				PlayerID:    res.Eliminated,
				Name:        s.PlayerName(res.Eliminated),
				Votes:       res.VoteCounts[res.Eliminated],
				Tied:        res.Tied,
				WasImpostor: res.WasImpostor,
			},
		})
	}

	switch {
	case res.Revote:
		s.RemovePlayer(res.Eliminated)
		delete(s.Impostors, res.Eliminated)
		s.Votes = make(map[int64]int64)
		s.Round++
		s.Transition(game.PhaseVoting)
		events = append(events, ballotEvent(s))
		voting := s.Mode.VotingTime
		round := s.Round
		after = append(after, func() {
			e.sched.Arm(roomID, timer.PurposeVoting, voting, func() {
				e.votingExpired(roomID, round)
			})
		})

	case res.GuessPhase:
		s.Transition(game.PhaseAwaitingGuess)
		prompt := GuessPromptPayload{Seconds: int(s.Mode.GuessTime.Seconds())}
		events = append(events, Event{Type: EventGuessPrompt, Scope: ScopeRoom, Payload: prompt})
		for impostor := range s.Impostors {
			events = append(events, Event{
				Type:     EventGuessPrompt,
				Scope:    ScopePlayer,
				PlayerID: impostor,
				Payload:  prompt,
			})
		}
		guess := s.Mode.GuessTime
		after = append(after, func() {
			e.sched.Cancel(roomID, timer.PurposeVoting)
			e.sched.Arm(roomID, timer.PurposeGuess, guess, func() {
				e.guessExpired(roomID)
			})
		})

	default:
		evs, post := e.finalizeLocked(s, res.Winner)
		events = append(events, evs...)
		after = append(after, post...)
	}

	return events, after
}

// SubmitGuess resolves a surviving impostor's location guess.
func (e *Engine) SubmitGuess(roomID string, playerID int64, guess string) ([]Event, error) {
	var events []Event
	var after []func()
	err := e.store.Mutate(roomID, func(s *session.Session) error {
		if s.Phase != game.PhaseAwaitingGuess || !s.IsImpostor(playerID) {
			return game.ErrNotAwaitingGuess
		}
		correct := game.GuessMatches(guess, s.Secret)
		events = append(events, Event{
			Type:  EventGuessResult,
			Scope: ScopeRoom,
			Payload: GuessResultPayload{
				Guess:   guess,
				Correct: correct,
			},
		})
		winner := game.SideCivilians
		if correct {
			winner = game.SideImpostors
		}
		evs, post := e.finalizeLocked(s, winner)
		events = append(events, evs...)
		after = append(after, post...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, fn := range after {
		fn()
	}
	return events, nil
}

func (e *Engine) guessExpired(roomID string) {
	var events []Event
	var after []func()
	err := e.store.Mutate(roomID, func(s *session.Session) error {
		if s.Phase != game.PhaseAwaitingGuess {
			return game.ErrInvalidPhase
		}
		events = append(events, Event{
			Type:  EventGuessResult,
			Scope: ScopeRoom,
			Payload: GuessResultPayload{
				Guess:   "",
				Correct: false,
			},
		})
		evs, post := e.finalizeLocked(s, game.SideCivilians)
		events = append(events, evs...)
		after = append(after, post...)
		return nil
	})
	if err != nil {
		return
	}
	for _, fn := range after {
		fn()
	}
	e.emit(roomID, events)
}

// finalizeLocked is the single Ended-transition path: it classifies the
// remaining roster, updates cumulative stats and achievements, persists the
// game record, and schedules the teardown. Every terminal branch funnels
// through here, so it runs at most once per session lifetime.
func (e *Engine) finalizeLocked(s *session.Session, winner game.Side) ([]Event, []func()) {
	roomID := s.RoomID
	s.Transition(game.PhaseEnded)

	participants := make([]stats.Participant, len(s.Roster))
	record := models.GameRecord{
		RoomID:    roomID,
		Mode:      s.Mode.Name,
		Winner:    string(winner),
		Secret:    s.Secret,
		Duration:  int(time.Since(s.StartedAt).Seconds()),
		CreatedAt: time.Now(),
	}
	var impostors []Candidate
	for i, p := range s.Roster {
		impostor := s.IsImpostor(p.ID)
		participants[i] = stats.Participant{ID: p.ID, Name: p.Name, Impostor: impostor}
		role := "civilian"
		outcome := "lose"
		if impostor {
			role = "impostor"
			impostors = append(impostors, Candidate{PlayerID: p.ID, Name: p.Name})
		}
		if (impostor && winner == game.SideImpostors) || (!impostor && winner == game.SideCivilians) {
			outcome = "win"
		}
		record.Participants = append(record.Participants, models.GameParticipant{
			UserID:  p.ID,
			Name:    p.Name,
			Role:    role,
			Outcome: outcome,
		})
	}

	unlocks := e.recorder.RecordOutcome(participants, winner)
	e.recorder.SaveGameRecord(&record)

	events := []Event{{
		Type:  EventGameEnded,
		Scope: ScopeRoom,
		Payload: GameEndedPayload{
			Winner:    string(winner),
			Secret:    s.Secret,
			Impostors: impostors,
		},
	}}
	for playerID, names := range unlocks {
		events = append(events, Event{
			Type:     EventAchievements,
			Scope:    ScopePlayer,
			PlayerID: playerID,
			Payload:  AchievementsPayload{Names: names},
		})
	}

	duration := time.Since(s.StartedAt)
	after := []func(){func() {
		e.teardown(roomID)
		if e.mon != nil {
			e.mon.ObserveGameFinished(duration)
		}
	}}
	logger.Log.Infof("room %s: game over, winner=%s secret=%q", roomID, winner, s.Secret)
	return events, after
}

// EndSession aborts the session without recording an outcome.
func (e *Engine) EndSession(roomID string, requesterID int64) ([]Event, error) {
	var events []Event
	err := e.store.Mutate(roomID, func(s *session.Session) error {
		if !e.authorized(s, requesterID) {
			return game.ErrNotAuthorized
		}
		s.Transition(game.PhaseEnded)
		events = append(events, Event{
			Type:    EventGameClosed,
			Scope:   ScopeRoom,
			Payload: GameClosedPayload{Reason: "ended by " + s.PlayerName(requesterID)},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.teardown(roomID)
	return events, nil
}

// teardown cancels the room's pending timers, then removes the session. A
// callback already in flight finds the tombstoned entry and fails its
// Mutate, so it can never observe a half-dead room.
func (e *Engine) teardown(roomID string) {
	e.sched.CancelAll(roomID)
	e.store.Destroy(roomID)
	if e.mon != nil {
		e.mon.SetActiveSessions(e.store.Len())
	}
}

func (e *Engine) authorized(s *session.Session, requesterID int64) bool {
	if requesterID == s.Host {
		return true
	}
	_, admin := e.admins[requesterID]
	return admin
}
