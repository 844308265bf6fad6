package main

import (
	netrpc "net/rpc"

	"github.com/wfunc/spyserver/config"
	"github.com/wfunc/spyserver/engine"
	"github.com/wfunc/spyserver/logger"
	"github.com/wfunc/spyserver/monitor"
	"github.com/wfunc/spyserver/persistence"
	"github.com/wfunc/spyserver/rpc"
	"github.com/wfunc/spyserver/server"
	"github.com/wfunc/spyserver/services"
	"github.com/wfunc/spyserver/session"
	"github.com/wfunc/spyserver/stats"
	"github.com/wfunc/spyserver/timer"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	var db persistence.Database
	switch cfg.Database.Driver {
	case "gorm":
		db, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	case "pq":
		db, err = persistence.NewPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	default:
		logger.Log.Warn("No database driver configured, stats are memory only.")
	}
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	if db != nil {
		logger.Log.Info("Database connection successful.")
	}

	// Metrics
	mon := monitor.NewMonitor("spyserver")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Core engine wiring
	store := session.NewStore()
	sched := timer.NewScheduler()
	recorder := stats.NewRecorder(db)
	recorder.Warm()

	eng := engine.New(store, sched, recorder,
		engine.WithAdmins(cfg.Game.Admins),
		engine.WithMaxPlayers(cfg.Game.MaxPlayers),
		engine.WithMonitor(mon),
	)

	// Read-side services and RPC
	playerService := services.NewPlayerService(recorder, db)
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	netrpc.Register(rpc.NewStatsService(playerService))
	go rpcServer.Start()

	// Start Server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, eng, playerService, mon)
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
