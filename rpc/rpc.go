package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/spyserver/logger"
	"github.com/wfunc/spyserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the caller
// via net/rpc before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// StatsService exposes read-only player statistics over net/rpc for
// operational tooling.
type StatsService struct {
	playerService *services.PlayerService
}

func NewStatsService(ps *services.PlayerService) *StatsService {
	return &StatsService{playerService: ps}
}

type GetPlayerStatsArgs struct {
	UserID int64
}

type GetPlayerStatsReply struct {
	Summary services.PlayerSummary
}

func (s *StatsService) GetPlayerStats(args *GetPlayerStatsArgs, reply *GetPlayerStatsReply) error {
	summary, err := s.playerService.GetPlayerStats(args.UserID)
	if err != nil {
		return err
	}
	reply.Summary = summary
	return nil
}

type GetLeaderboardArgs struct {
	Limit int
}

type GetLeaderboardReply struct {
	Board services.Leaderboard
}

func (s *StatsService) GetLeaderboard(args *GetLeaderboardArgs, reply *GetLeaderboardReply) error {
	reply.Board = s.playerService.GetLeaderboard(args.Limit)
	return nil
}
