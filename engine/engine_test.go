package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/spyserver/game"
	"github.com/wfunc/spyserver/session"
	"github.com/wfunc/spyserver/stats"
	"github.com/wfunc/spyserver/timer"
)

func init() {
	// Long timers keep manually driven tests deterministic; short ones
	// exercise the timer paths.
	game.Modes["itest_long"] = &game.ModeConfig{
		Name: "itest_long", Title: "Test", Description: "long timers",
		DiscussionTime: time.Minute, VotingTime: time.Minute, GuessTime: time.Minute,
		MinPlayers: 3, Variant: game.VariantSingle,
	}
	game.Modes["itest_short"] = &game.ModeConfig{
		Name: "itest_short", Title: "Test", Description: "short timers",
		DiscussionTime: 30 * time.Millisecond, VotingTime: 60 * time.Millisecond,
		GuessTime: 40 * time.Millisecond,
		MinPlayers: 3, Variant: game.VariantSingle,
	}
	game.Modes["itest_team"] = &game.ModeConfig{
		Name: "itest_team", Title: "Test", Description: "team, long timers",
		DiscussionTime: time.Minute, VotingTime: time.Minute, GuessTime: time.Minute,
		MinPlayers: 4, Variant: game.VariantTeam,
	}
}

// sinkRecorder collects timer-driven events for assertions.
type sinkRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *sinkRecorder) sink(roomID string, events []Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *sinkRecorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func (r *sinkRecorder) waitFor(t *testing.T, eventType string, timeout time.Duration) Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		for _, ev := range r.events {
			if ev.Type == eventType {
				r.mu.Unlock()
				return ev
			}
		}
		r.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s event", eventType)
	return Event{}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *stats.Recorder, *sinkRecorder) {
	t.Helper()
	store := session.NewStore()
	sched := timer.NewSchedulerWithTick(5 * time.Millisecond)
	t.Cleanup(sched.Stop)
	recorder := stats.NewRecorder(nil)
	e := New(store, sched, recorder, opts...)
	rec := &sinkRecorder{}
	e.SetSink(rec.sink)
	return e, recorder, rec
}

// setupGame creates a room, selects the mode, joins extra players and starts
// the game. Returns the impostor ids gleaned from the role events.
func setupGame(t *testing.T, e *Engine, roomID, mode string, players int) map[int64]bool {
	t.Helper()
	if _, err := e.CreateSession(roomID, 1, "p1"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := e.SelectMode(roomID, mode); err != nil {
		t.Fatalf("SelectMode failed: %v", err)
	}
	for i := 2; i <= players; i++ {
		if _, err := e.Join(roomID, int64(i), "p"); err != nil {
			t.Fatalf("Join %d failed: %v", i, err)
		}
	}
	events, err := e.Begin(roomID, 1)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	impostors := make(map[int64]bool)
	roles := 0
	for _, ev := range events {
		if ev.Type != EventRoleAssigned {
			continue
		}
		roles++
		if ev.Scope != ScopePlayer {
			t.Fatal("Role events must be player-scoped")
		}
		if ev.Payload.(RolePayload).Role == "impostor" {
			impostors[ev.PlayerID] = true
		}
	}
	if roles != players {
		t.Fatalf("Expected %d role events, got %d", players, roles)
	}
	return impostors
}

func anyCivilian(players int, impostors map[int64]bool) int64 {
	for i := 1; i <= players; i++ {
		if !impostors[int64(i)] {
			return int64(i)
		}
	}
	return 0
}

func anyImpostor(impostors map[int64]bool) int64 {
	for id := range impostors {
		return id
	}
	return 0
}

func findEvent(events []Event, eventType string) (Event, bool) {
	for _, ev := range events {
		if ev.Type == eventType {
			return ev, true
		}
	}
	return Event{}, false
}

func TestFullGame_CiviliansWin(t *testing.T) {
	e, _, _ := newTestEngine(t)
	impostors := setupGame(t, e, "room1", "itest_long", 3)
	if len(impostors) != 1 {
		t.Fatalf("Expected 1 impostor, got %d", len(impostors))
	}
	spy := anyImpostor(impostors)

	if _, err := e.StartVoting("room1"); err != nil {
		t.Fatalf("StartVoting failed: %v", err)
	}

	var lastEvents []Event
	for i := int64(1); i <= 3; i++ {
		receipt, events, err := e.CastVote("room1", i, spy)
		if err != nil {
			t.Fatalf("CastVote by %d failed: %v", i, err)
		}
		if !receipt.Accepted {
			t.Fatal("Vote should be accepted")
		}
		if (i == 3) != receipt.VotingComplete {
			t.Fatalf("Vote %d: VotingComplete=%v", i, receipt.VotingComplete)
		}
		lastEvents = events
	}

	elim, ok := findEvent(lastEvents, EventElimination)
	if !ok {
		t.Fatal("Final vote should carry the elimination")
	}
	ep := elim.Payload.(EliminationPayload)
	if ep.PlayerID != spy || !ep.WasImpostor {
		t.Fatalf("Unexpected elimination: %+v", ep)
	}

	ended, ok := findEvent(lastEvents, EventGameEnded)
	if !ok {
		t.Fatal("Eliminating the impostor should end the game")
	}
	if ended.Payload.(GameEndedPayload).Winner != string(game.SideCivilians) {
		t.Fatalf("Civilians should win, got %+v", ended.Payload)
	}

	// The session is gone.
	if _, err := e.Join("room1", 9, "late"); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("Expected ErrSessionNotFound after game end, got %v", err)
	}
}

func TestFullGame_ImpostorGuess(t *testing.T) {
	e, _, _ := newTestEngine(t)
	impostors := setupGame(t, e, "room1", "itest_long", 3)
	spy := anyImpostor(impostors)
	victim := anyCivilian(3, impostors)

	e.StartVoting("room1")
	var lastEvents []Event
	for i := int64(1); i <= 3; i++ {
		_, events, err := e.CastVote("room1", i, victim)
		if err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
		lastEvents = events
	}

	if _, ok := findEvent(lastEvents, EventGuessPrompt); !ok {
		t.Fatal("Surviving impostor should be prompted to guess")
	}
	if _, ok := findEvent(lastEvents, EventGameEnded); ok {
		t.Fatal("Game must not end before the guess resolves")
	}

	// Only the impostor may guess, only in this phase.
	if _, err := e.SubmitGuess("room1", victim, "anything"); !errors.Is(err, game.ErrNotAwaitingGuess) {
		t.Fatalf("Civilian guess should fail, got %v", err)
	}

	var secret string
	e.store.Mutate("room1", func(s *session.Session) error {
		secret = s.Secret
		return nil
	})

	events, err := e.SubmitGuess("room1", spy, secret)
	if err != nil {
		t.Fatalf("SubmitGuess failed: %v", err)
	}
	result, ok := findEvent(events, EventGuessResult)
	if !ok || !result.Payload.(GuessResultPayload).Correct {
		t.Fatal("Exact guess should be correct")
	}
	ended, ok := findEvent(events, EventGameEnded)
	if !ok || ended.Payload.(GameEndedPayload).Winner != string(game.SideImpostors) {
		t.Fatal("Correct guess should hand the game to the impostors")
	}
}

func TestFullGame_WrongGuess(t *testing.T) {
	e, _, _ := newTestEngine(t)
	impostors := setupGame(t, e, "room1", "itest_long", 3)
	spy := anyImpostor(impostors)
	victim := anyCivilian(3, impostors)

	e.StartVoting("room1")
	for i := int64(1); i <= 3; i++ {
		e.CastVote("room1", i, victim)
	}

	events, err := e.SubmitGuess("room1", spy, "definitely not the location zzz")
	if err != nil {
		t.Fatalf("SubmitGuess failed: %v", err)
	}
	ended, ok := findEvent(events, EventGameEnded)
	if !ok || ended.Payload.(GameEndedPayload).Winner != string(game.SideCivilians) {
		t.Fatal("Wrong guess should hand the game to the civilians")
	}
}

func TestTeamGame_RevoteAfterImpostorFalls(t *testing.T) {
	e, _, _ := newTestEngine(t)
	impostors := setupGame(t, e, "room1", "itest_team", 4)
	if len(impostors) != 2 {
		t.Fatalf("Expected 2 impostors, got %d", len(impostors))
	}
	first := anyImpostor(impostors)

	e.StartVoting("room1")
	var lastEvents []Event
	for i := int64(1); i <= 4; i++ {
		_, events, err := e.CastVote("room1", i, first)
		if err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
		lastEvents = events
	}

	ballot, ok := findEvent(lastEvents, EventBallot)
	if !ok {
		t.Fatal("Eliminating one of two impostors should open a fresh ballot")
	}
	bp := ballot.Payload.(BallotPayload)
	if bp.Round != 2 {
		t.Fatalf("Expected round 2, got %d", bp.Round)
	}
	if len(bp.Candidates) != 3 {
		t.Fatalf("Eliminated player should be off the ballot, got %d candidates", len(bp.Candidates))
	}

	// The eliminated impostor can no longer vote.
	if _, _, err := e.CastVote("room1", first, 1); !errors.Is(err, game.ErrInvalidVote) {
		t.Fatalf("Eliminated player's vote should be rejected, got %v", err)
	}

	// Hunt down the second impostor.
	var second int64
	for id := range impostors {
		if id != first {
			second = id
		}
	}
	var lastRound []Event
	for _, c := range bp.Candidates {
		_, events, err := e.CastVote("room1", c.PlayerID, second)
		if err != nil {
			t.Fatalf("Round 2 vote failed: %v", err)
		}
		lastRound = events
	}
	ended, ok := findEvent(lastRound, EventGameEnded)
	if !ok || ended.Payload.(GameEndedPayload).Winner != string(game.SideCivilians) {
		t.Fatal("Eliminating the last impostor should end with civilians winning")
	}
}

func TestStaleVotingExpiryIgnoresLaterRound(t *testing.T) {
	e, _, rec := newTestEngine(t)
	impostors := setupGame(t, e, "room1", "itest_team", 4)
	first := anyImpostor(impostors)

	e.StartVoting("room1")
	for i := int64(1); i <= 4; i++ {
		if _, _, err := e.CastVote("room1", i, first); err != nil {
			t.Fatalf("Round 1 vote failed: %v", err)
		}
	}

	// Round 2 is open with an empty ballot. Invoke the round-1 expiry the
	// way an already launched timer goroutine would; it must not close the
	// fresh round as a zero-vote default.
	e.votingExpired("room1", 1)

	if n := rec.count(EventGameEnded); n != 0 {
		t.Fatalf("Round-1 expiry ended the round-2 game (%d game_ended events)", n)
	}
	err := e.store.Mutate("room1", func(s *session.Session) error {
		if s.Phase != game.PhaseVoting || s.Round != 2 {
			t.Fatalf("Session should still be voting in round 2, got %s round %d", s.Phase, s.Round)
		}
		if len(s.Votes) != 0 {
			t.Fatalf("Round 2 ballot should be untouched, got %d votes", len(s.Votes))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Session should still be alive: %v", err)
	}

	// The matching round-2 expiry still works.
	e.votingExpired("room1", 2)
	ended := rec.waitFor(t, EventGameEnded, time.Second)
	if ended.Payload.(GameEndedPayload).Winner != string(game.SideImpostors) {
		t.Fatalf("Zero votes in round 2 should favor the impostors, got %+v", ended.Payload)
	}
}

func TestVotingTimeout_ZeroVotes(t *testing.T) {
	e, _, rec := newTestEngine(t)
	setupGame(t, e, "room1", "itest_short", 3)

	// Discussion (30ms) and then voting (60ms) expire with nobody voting.
	ended := rec.waitFor(t, EventGameEnded, time.Second)
	if ended.Payload.(GameEndedPayload).Winner != string(game.SideImpostors) {
		t.Fatalf("A silent room should lose to the impostors, got %+v", ended.Payload)
	}
	if rec.count(EventElimination) != 0 {
		t.Fatal("Zero votes must not eliminate anyone")
	}
}

func TestGuessTimeout(t *testing.T) {
	e, _, rec := newTestEngine(t)
	impostors := setupGame(t, e, "room1", "itest_short", 3)
	victim := anyCivilian(3, impostors)

	e.StartVoting("room1")
	for i := int64(1); i <= 3; i++ {
		if _, _, err := e.CastVote("room1", i, victim); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
	}

	// The impostor never guesses; the guess window closes on its own.
	ended := rec.waitFor(t, EventGameEnded, time.Second)
	if ended.Payload.(GameEndedPayload).Winner != string(game.SideCivilians) {
		t.Fatalf("Guess timeout should favor the civilians, got %+v", ended.Payload)
	}
}

func TestSupersededDiscussionTimerStaysSilent(t *testing.T) {
	e, _, rec := newTestEngine(t)
	setupGame(t, e, "room1", "itest_short", 3)

	// Beat the 30ms discussion timer to the punch.
	if _, err := e.StartVoting("room1"); err != nil {
		t.Fatalf("StartVoting failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if n := rec.count(EventBallot); n != 0 {
		t.Fatalf("The dead discussion timer emitted %d ballot events", n)
	}
}

func TestDoubleVoteRejected(t *testing.T) {
	e, _, _ := newTestEngine(t)
	setupGame(t, e, "room1", "itest_long", 3)
	e.StartVoting("room1")

	if _, _, err := e.CastVote("room1", 1, 2); err != nil {
		t.Fatalf("First vote failed: %v", err)
	}
	if _, _, err := e.CastVote("room1", 1, 3); !errors.Is(err, game.ErrInvalidVote) {
		t.Fatalf("Second vote should be rejected, got %v", err)
	}
}

func TestVoteOutsideVotingPhase(t *testing.T) {
	e, _, _ := newTestEngine(t)
	setupGame(t, e, "room1", "itest_long", 3)

	if _, _, err := e.CastVote("room1", 1, 2); !errors.Is(err, game.ErrInvalidVote) {
		t.Fatalf("Voting during discussion should fail, got %v", err)
	}
}

func TestLobby_Rules(t *testing.T) {
	e, _, _ := newTestEngine(t, WithMaxPlayers(3))
	e.CreateSession("room1", 1, "host")

	// No joining before a mode is picked.
	if _, err := e.Join("room1", 2, "early"); !errors.Is(err, game.ErrInvalidPhase) {
		t.Fatalf("Join before mode selection should fail, got %v", err)
	}

	if _, err := e.SelectMode("room1", "nope"); !errors.Is(err, game.ErrUnknownMode) {
		t.Fatalf("Expected ErrUnknownMode, got %v", err)
	}
	e.SelectMode("room1", "itest_long")

	if _, err := e.Join("room1", 1, "host"); !errors.Is(err, game.ErrAlreadyJoined) {
		t.Fatalf("Host rejoining should fail, got %v", err)
	}
	e.Join("room1", 2, "p2")
	e.Join("room1", 3, "p3")
	if _, err := e.Join("room1", 4, "p4"); !errors.Is(err, game.ErrRoomFull) {
		t.Fatalf("Fourth join should hit the cap, got %v", err)
	}

	// Only the host starts the game.
	if _, err := e.Begin("room1", 2); !errors.Is(err, game.ErrNotAuthorized) {
		t.Fatalf("Non-host Begin should fail, got %v", err)
	}
	if _, err := e.Begin("room1", 1); err != nil {
		t.Fatalf("Host Begin failed: %v", err)
	}

	// The roster is frozen once the game runs.
	if _, err := e.Join("room1", 4, "late"); !errors.Is(err, game.ErrGameStarted) {
		t.Fatalf("Join after start should fail, got %v", err)
	}
	if _, err := e.Leave("room1", 2); !errors.Is(err, game.ErrGameStarted) {
		t.Fatalf("Leave after start should fail, got %v", err)
	}
}

func TestBegin_InsufficientPlayers(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.CreateSession("room1", 1, "host")
	e.SelectMode("room1", "itest_long")
	e.Join("room1", 2, "p2")

	if _, err := e.Begin("room1", 1); !errors.Is(err, game.ErrInsufficientPlayers) {
		t.Fatalf("Two players should not satisfy MinPlayers 3, got %v", err)
	}
}

func TestLeave_HostReassignmentAndClose(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.CreateSession("room1", 1, "host")
	e.SelectMode("room1", "itest_long")
	e.Join("room1", 2, "p2")

	events, err := e.Leave("room1", 1)
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	hc, ok := findEvent(events, EventHostChanged)
	if !ok || hc.Payload.(HostChangedPayload).HostID != 2 {
		t.Fatal("Host role should pass to the oldest remaining member")
	}

	events, err = e.Leave("room1", 2)
	if err != nil {
		t.Fatalf("Last leave failed: %v", err)
	}
	if _, ok := findEvent(events, EventGameClosed); !ok {
		t.Fatal("Emptying the room should close the session")
	}
	if _, err := e.Join("room1", 3, "p3"); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("Closed session should be gone, got %v", err)
	}
}

func TestEndSession_SkipsStats(t *testing.T) {
	e, recorder, _ := newTestEngine(t, WithAdmins([]int64{99}))
	setupGame(t, e, "room1", "itest_long", 3)

	if _, err := e.EndSession("room1", 2); !errors.Is(err, game.ErrNotAuthorized) {
		t.Fatalf("Non-host abort should fail, got %v", err)
	}

	// An admin may abort someone else's game.
	events, err := e.EndSession("room1", 99)
	if err != nil {
		t.Fatalf("Admin EndSession failed: %v", err)
	}
	if _, ok := findEvent(events, EventGameClosed); !ok {
		t.Fatal("Abort should announce the closure")
	}

	// Aborted games leave no trace in the stats.
	if _, ok := recorder.Stats(1); ok {
		t.Fatal("Aborted game must not create stats records")
	}
}

func TestDuplicateSession(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.CreateSession("room1", 1, "host")
	if _, err := e.CreateSession("room1", 2, "other"); !errors.Is(err, game.ErrAlreadyActive) {
		t.Fatalf("Expected ErrAlreadyActive, got %v", err)
	}
}

func TestStatsRecordedOnNaturalEnd(t *testing.T) {
	e, recorder, _ := newTestEngine(t)
	impostors := setupGame(t, e, "room1", "itest_long", 3)
	spy := anyImpostor(impostors)

	e.StartVoting("room1")
	for i := int64(1); i <= 3; i++ {
		e.CastVote("room1", i, spy)
	}

	rec, ok := recorder.Stats(spy)
	if !ok {
		t.Fatal("The impostor should have a stats record")
	}
	if rec.SpyGames != 1 || rec.SpyWins != 0 {
		t.Fatalf("Voted-out impostor should have a spy loss, got %+v", rec)
	}

	civilian := anyCivilian(3, impostors)
	crec, _ := recorder.Stats(civilian)
	if crec.CivilianWins != 1 {
		t.Fatalf("Civilians won, got %+v", crec)
	}
	if crec.CorrectVotes != 1 {
		t.Fatalf("Voting the impostor should count as correct, got %+v", crec)
	}
}
