package broadcast

import (
	"testing"

	"github.com/wfunc/spyserver/engine"
	"github.com/wfunc/spyserver/network"
)

type sent struct {
	roomID   string
	playerID int64
	msgID    uint16
	data     []byte
}

// MockSender is a test double for the Sender interface.
type MockSender struct {
	roomSends   []sent
	playerSends []sent
}

func (m *MockSender) SendToRoom(roomID string, msgID uint16, data []byte) error {
	m.roomSends = append(m.roomSends, sent{roomID: roomID, msgID: msgID, data: data})
	return nil
}

func (m *MockSender) SendToPlayer(playerID int64, msgID uint16, data []byte) error {
	m.playerSends = append(m.playerSends, sent{playerID: playerID, msgID: msgID, data: data})
	return nil
}

func TestDispatch_Scopes(t *testing.T) {
	sender := &MockSender{}
	d := NewDispatcher(sender)

	d.Dispatch("room1", []engine.Event{
		{
			Type:    engine.EventBallot,
			Scope:   engine.ScopeRoom,
			Payload: engine.BallotPayload{Round: 1},
		},
		{
			Type:     engine.EventRoleAssigned,
			Scope:    engine.ScopePlayer,
			PlayerID: 42,
			Payload:  engine.RolePayload{Role: "impostor"},
		},
	})

	if len(sender.roomSends) != 1 {
		t.Fatalf("Expected 1 room send, got %d", len(sender.roomSends))
	}
	if sender.roomSends[0].roomID != "room1" || sender.roomSends[0].msgID != network.MsgTypeBallot {
		t.Fatalf("Unexpected room send: %+v", sender.roomSends[0])
	}

	if len(sender.playerSends) != 1 {
		t.Fatalf("Expected 1 player send, got %d", len(sender.playerSends))
	}
	if sender.playerSends[0].playerID != 42 || sender.playerSends[0].msgID != network.MsgTypeRoleAssigned {
		t.Fatalf("Unexpected player send: %+v", sender.playerSends[0])
	}
}

func TestDispatch_EveryEventTypeHasMsgID(t *testing.T) {
	types := []string{
		engine.EventSessionCreated,
		engine.EventModeSelected,
		engine.EventPlayerJoined,
		engine.EventPlayerLeft,
		engine.EventHostChanged,
		engine.EventRoleAssigned,
		engine.EventDiscussion,
		engine.EventBallot,
		engine.EventVoteProgress,
		engine.EventElimination,
		engine.EventGuessPrompt,
		engine.EventGuessResult,
		engine.EventGameEnded,
		engine.EventGameClosed,
		engine.EventAchievements,
	}
	for _, typ := range types {
		if _, ok := msgIDs[typ]; !ok {
			t.Errorf("Event type %q has no message id", typ)
		}
	}
}

func TestDispatch_UnknownTypeDropped(t *testing.T) {
	sender := &MockSender{}
	d := NewDispatcher(sender)

	d.Dispatch("room1", []engine.Event{{Type: "made_up", Scope: engine.ScopeRoom}})
	if len(sender.roomSends) != 0 {
		t.Fatal("Unknown event types must be dropped, not sent")
	}
}
