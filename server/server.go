package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/wfunc/spyserver/broadcast"
	"github.com/wfunc/spyserver/engine"
	"github.com/wfunc/spyserver/game"
	"github.com/wfunc/spyserver/logger"
	"github.com/wfunc/spyserver/monitor"
	"github.com/wfunc/spyserver/network"
	"github.com/wfunc/spyserver/services"
)

// client is one authenticated websocket connection.
type client struct {
	id     string
	conn   network.Connection
	userID int64
	name   string
	roomID string
}

type GameServer struct {
	addr          string
	upgrader      websocket.Upgrader
	engine        *engine.Engine
	dispatcher    *broadcast.Dispatcher
	playerService *services.PlayerService
	mon           *monitor.Monitor

	mutex   sync.RWMutex
	clients map[string]*client         // connection id -> client
	players map[int64]*client          // user id -> client
	rooms   map[string]map[int64]*client

	shutdownChan chan struct{}
}

func NewGameServer(addr string, eng *engine.Engine, playerService *services.PlayerService, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		addr:          addr,
		engine:        eng,
		playerService: playerService,
		mon:           mon,
		clients:       make(map[string]*client),
		players:       make(map[int64]*client),
		rooms:         make(map[string]map[int64]*client),
		shutdownChan:  make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.dispatcher = broadcast.NewDispatcher(s)
	eng.SetSink(s.dispatcher.Dispatch)

	return s
}

func (s *GameServer) Start() error {
	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleWebSocket)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, router)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
}

// SendToRoom implements broadcast.Sender.
func (s *GameServer) SendToRoom(roomID string, msgID uint16, data []byte) error {
	s.mutex.RLock()
	members := make([]*client, 0, len(s.rooms[roomID]))
	for _, c := range s.rooms[roomID] {
		members = append(members, c)
	}
	s.mutex.RUnlock()

	if len(members) == 0 {
		return broadcast.ErrRoomNotFound
	}
	for _, c := range members {
		if err := c.conn.Send(msgID, data); err != nil {
			// 处理发送错误，可能需要移除玩家
			continue
		}
	}
	return nil
}

// SendToPlayer implements broadcast.Sender.
func (s *GameServer) SendToPlayer(playerID int64, msgID uint16, data []byte) error {
	s.mutex.RLock()
	c, ok := s.players[playerID]
	s.mutex.RUnlock()
	if !ok {
		return errors.New("player not connected")
	}
	return c.conn.Send(msgID, data)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(30 * time.Second)
	c := &client{id: uuid.New().String(), conn: wsConn}

	s.mutex.Lock()
	s.clients[c.id] = c
	s.mutex.Unlock()
	if s.mon != nil {
		s.mon.IncOnlinePlayers()
	}

	logger.Log.Infof("New connection from %s, client ID: %s", wsConn.RemoteAddr(), c.id)

	defer func() {
		logger.Log.Infof("Connection closed from %s, client ID: %s", wsConn.RemoteAddr(), c.id)
		s.dropClient(c)
		wsConn.Close()
		if s.mon != nil {
			s.mon.DecOnlinePlayers()
		}
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(c, packet)
		}
	}
}

// dropClient detaches a disconnected client. A player in a waiting lobby is
// removed from the roster; a player in a running game stays on the roster so
// the round can still resolve.
func (s *GameServer) dropClient(c *client) {
	s.mutex.Lock()
	delete(s.clients, c.id)
	if c.userID != 0 && s.players[c.userID] == c {
		delete(s.players, c.userID)
	}
	roomID := c.roomID
	if roomID != "" {
		if members, ok := s.rooms[roomID]; ok {
			delete(members, c.userID)
		}
	}
	s.mutex.Unlock()

	if roomID != "" && c.userID != 0 {
		events, err := s.engine.Leave(roomID, c.userID)
		if err == nil {
			s.dispatcher.Dispatch(roomID, events)
		}
	}
}

func (s *GameServer) handlePacket(c *client, packet *network.Packet) {
	if c.userID == 0 && packet.MsgID != network.MsgTypeAuth && packet.MsgID != network.MsgTypeHeartbeat {
		s.sendError(c, packet.MsgID, game.ErrNotAuthorized)
		return
	}

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		c.conn.Send(network.MsgTypeHeartbeat, nil)
	case network.MsgTypeAuth:
		s.handleAuth(c, packet)
	case network.MsgTypeCreateSession:
		s.handleCreateSession(c, packet)
	case network.MsgTypeSelectMode:
		s.handleSelectMode(c, packet)
	case network.MsgTypeJoinGame:
		s.handleJoin(c, packet)
	case network.MsgTypeLeaveGame:
		s.handleLeave(c, packet)
	case network.MsgTypeStartGame:
		s.handleStartGame(c, packet)
	case network.MsgTypeEndGame:
		s.handleEndGame(c, packet)
	case network.MsgTypeStartVoting:
		s.handleStartVoting(c, packet)
	case network.MsgTypeCastVote:
		s.handleCastVote(c, packet)
	case network.MsgTypeSubmitGuess:
		s.handleSubmitGuess(c, packet)
	case network.MsgTypeGetStats:
		s.handleGetStats(c, packet)
	case network.MsgTypeGetLeaderboard:
		s.handleGetLeaderboard(c, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleAuth(c *client, packet *network.Packet) {
	var req network.AuthRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.UserID == 0 {
		s.sendError(c, packet.MsgID, game.ErrNotAuthorized)
		return
	}

	s.mutex.Lock()
	if old, ok := s.players[req.UserID]; ok && old != c {
		old.conn.Close()
	}
	c.userID = req.UserID
	c.name = req.Name
	s.players[req.UserID] = c
	s.mutex.Unlock()

	c.conn.SendJSON(network.MsgTypeAuth, map[string]int64{"user_id": req.UserID})
}

func (s *GameServer) handleCreateSession(c *client, packet *network.Packet) {
	var req network.CreateSessionRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	roomID := req.RoomID
	if roomID == "" {
		roomID = uuid.New().String()
	}

	events, err := s.engine.CreateSession(roomID, c.userID, c.name)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.enterRoom(c, roomID)
	s.dispatcher.Dispatch(roomID, events)
}

func (s *GameServer) handleSelectMode(c *client, packet *network.Packet) {
	var req network.SelectModeRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	events, err := s.engine.SelectMode(req.RoomID, req.Mode)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.dispatcher.Dispatch(req.RoomID, events)
}

func (s *GameServer) handleJoin(c *client, packet *network.Packet) {
	var req network.RoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	events, err := s.engine.Join(req.RoomID, c.userID, c.name)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.enterRoom(c, req.RoomID)
	s.dispatcher.Dispatch(req.RoomID, events)
}

func (s *GameServer) handleLeave(c *client, packet *network.Packet) {
	var req network.RoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	events, err := s.engine.Leave(req.RoomID, c.userID)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	// Deliver before leaving the local room index so the leaver still sees
	// the farewell.
	s.dispatcher.Dispatch(req.RoomID, events)
	s.exitRoom(c, req.RoomID)
}

func (s *GameServer) handleStartGame(c *client, packet *network.Packet) {
	var req network.RoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	events, err := s.engine.Begin(req.RoomID, c.userID)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.dispatcher.Dispatch(req.RoomID, events)
}

func (s *GameServer) handleEndGame(c *client, packet *network.Packet) {
	var req network.RoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	events, err := s.engine.EndSession(req.RoomID, c.userID)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.dispatcher.Dispatch(req.RoomID, events)
	s.clearRoom(req.RoomID)
}

func (s *GameServer) handleStartVoting(c *client, packet *network.Packet) {
	var req network.RoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	events, err := s.engine.StartVoting(req.RoomID)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.dispatcher.Dispatch(req.RoomID, events)
}

func (s *GameServer) handleCastVote(c *client, packet *network.Packet) {
	var req network.CastVoteRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	receipt, events, err := s.engine.CastVote(req.RoomID, c.userID, req.TargetID)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	c.conn.SendJSON(network.MsgTypeVoteReceipt, receipt)
	s.dispatcher.Dispatch(req.RoomID, events)
}

func (s *GameServer) handleSubmitGuess(c *client, packet *network.Packet) {
	var req network.SubmitGuessRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	events, err := s.engine.SubmitGuess(req.RoomID, c.userID, req.Guess)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	s.dispatcher.Dispatch(req.RoomID, events)
}

func (s *GameServer) handleGetStats(c *client, packet *network.Packet) {
	var req network.StatsRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	userID := req.UserID
	if userID == 0 {
		userID = c.userID
	}
	summary, err := s.playerService.GetPlayerStats(userID)
	if err != nil {
		s.sendError(c, packet.MsgID, err)
		return
	}
	c.conn.SendJSON(network.MsgTypeStatsResult, summary)
}

func (s *GameServer) handleGetLeaderboard(c *client, packet *network.Packet) {
	var req network.LeaderboardRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	board := s.playerService.GetLeaderboard(req.Limit)
	c.conn.SendJSON(network.MsgTypeLeaderboard, board)
}

func (s *GameServer) enterRoom(c *client, roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	members, ok := s.rooms[roomID]
	if !ok {
		members = make(map[int64]*client)
		s.rooms[roomID] = members
	}
	members[c.userID] = c
	c.roomID = roomID
}

func (s *GameServer) exitRoom(c *client, roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if members, ok := s.rooms[roomID]; ok {
		delete(members, c.userID)
		if len(members) == 0 {
			delete(s.rooms, roomID)
		}
	}
	if c.roomID == roomID {
		c.roomID = ""
	}
}

func (s *GameServer) clearRoom(roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, c := range s.rooms[roomID] {
		c.roomID = ""
	}
	delete(s.rooms, roomID)
}

// Error codes sent on the wire, one per sentinel.
var errorCodes = map[error]string{
	game.ErrAlreadyActive:       "already_active",
	game.ErrSessionNotFound:     "session_not_found",
	game.ErrInvalidPhase:        "invalid_phase",
	game.ErrInvalidVote:         "invalid_vote",
	game.ErrInsufficientPlayers: "insufficient_players",
	game.ErrNotAuthorized:       "not_authorized",
	game.ErrAlreadyJoined:       "already_joined",
	game.ErrNotJoined:           "not_joined",
	game.ErrRoomFull:            "room_full",
	game.ErrGameStarted:         "game_started",
	game.ErrNotAwaitingGuess:    "not_awaiting_guess",
	game.ErrUnknownMode:         "unknown_mode",
}

func (s *GameServer) sendError(c *client, _ uint16, err error) {
	code := "internal"
	for sentinel, name := range errorCodes {
		if errors.Is(err, sentinel) {
			code = name
			break
		}
	}
	c.conn.SendJSON(network.MsgTypeError, network.ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}
