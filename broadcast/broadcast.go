// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"errors"

	"github.com/wfunc/spyserver/engine"
	"github.com/wfunc/spyserver/logger"
	"github.com/wfunc/spyserver/network"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// Sender delivers framed packets to connected players. The server implements
// it; the dispatcher stays ignorant of connections and rooms.
type Sender interface {
	SendToRoom(roomID string, msgID uint16, data []byte) error
	SendToPlayer(playerID int64, msgID uint16, data []byte) error
}

// 事件类型到消息ID的映射
var msgIDs = map[string]uint16{
	engine.EventSessionCreated: network.MsgTypeSessionCreated,
	engine.EventModeSelected:   network.MsgTypeModeSelected,
	engine.EventPlayerJoined:   network.MsgTypePlayerJoined,
	engine.EventPlayerLeft:     network.MsgTypePlayerLeft,
	engine.EventHostChanged:    network.MsgTypeHostChanged,
	engine.EventRoleAssigned:   network.MsgTypeRoleAssigned,
	engine.EventDiscussion:     network.MsgTypeDiscussion,
	engine.EventBallot:         network.MsgTypeBallot,
	engine.EventVoteProgress:   network.MsgTypeVoteProgress,
	engine.EventElimination:    network.MsgTypeElimination,
	engine.EventGuessPrompt:    network.MsgTypeGuessPrompt,
	engine.EventGuessResult:    network.MsgTypeGuessResult,
	engine.EventGameEnded:      network.MsgTypeGameEnded,
	engine.EventGameClosed:     network.MsgTypeGameClosed,
	engine.EventAchievements:   network.MsgTypeAchievements,
}

// Dispatcher translates engine events into packets and fans them out.
type Dispatcher struct {
	sender Sender
}

func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Dispatch delivers a batch of events for one room. It is the engine's Sink
// for timer-driven transitions and is also called by the server for events
// returned from synchronous operations.
func (d *Dispatcher) Dispatch(roomID string, events []engine.Event) {
	for _, ev := range events {
		msgID, ok := msgIDs[ev.Type]
		if !ok {
			logger.Log.Warnf("no message id for event %q", ev.Type)
			continue
		}
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			logger.Log.Errorf("failed to encode %s event: %v", ev.Type, err)
			continue
		}
		switch ev.Scope {
		case engine.ScopePlayer:
			if err := d.sender.SendToPlayer(ev.PlayerID, msgID, data); err != nil {
				logger.Log.Debugf("drop %s for player %d: %v", ev.Type, ev.PlayerID, err)
			}
		default:
			if err := d.sender.SendToRoom(roomID, msgID, data); err != nil {
				logger.Log.Debugf("drop %s for room %s: %v", ev.Type, roomID, err)
			}
		}
	}
}
