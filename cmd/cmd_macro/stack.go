package cmd_macro

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rskv-p/srtmacro/pkg/x_db"
	"github.com/rskv-p/srtmacro/pkg/x_log"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_cfg"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_vault"
	"gorm.io/gorm"
)

// stack is the in-process controller with its storage, shared by serve and run.
type stack struct {
	cfg   macro_cfg.MacroConfig
	db    *gorm.DB
	vault *macro_vault.Vault
	pump  *macro_serv.LogPump
	ctrl  *macro_serv.Controller
}

func openVault(cfg macro_cfg.MacroConfig) (*gorm.DB, *macro_vault.Vault, error) {
	db, err := x_db.Open(cfg.DB, x_log.New("db"))
	if err != nil {
		return nil, nil, err
	}
	v, err := macro_vault.New(db, cfg.Vault.Passphrase, x_log.New("vault"))
	if err != nil {
		closeDB(db)
		return nil, nil, err
	}
	return db, v, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newStack(cfg macro_cfg.MacroConfig) (*stack, error) {
	db, v, err := openVault(cfg)
	if err != nil {
		return nil, err
	}

	pump := macro_serv.NewLogPump(x_log.New("pump"), macro_serv.PumpOptions{
		BufferSize:   cfg.Logs.BufferSize,
		QueueSize:    cfg.Logs.QueueSize,
		PollInterval: cfg.Logs.PollInterval,
	})
	spawner := &macro_serv.ProcSpawner{
		Command: workerArgv(cfg),
		Env:     v.Environ,
		Log:     x_log.New("spawner"),
	}
	ctrl := macro_serv.NewController(x_log.New("controller"), spawner, pump, macro_serv.Options{
		StartWait:   cfg.Worker.StartWait,
		JoinTimeout: cfg.Worker.JoinTimeout,
		StopTimeout: cfg.Worker.StopTimeout,
	})

	return &stack{cfg: cfg, db: db, vault: v, pump: pump, ctrl: ctrl}, nil
}

// workerArgv re-executes this binary unless the config names a worker command.
// The config path is handed down so the worker sees the same settings.
func workerArgv(cfg macro_cfg.MacroConfig) []string {
	if len(cfg.Worker.Command) > 0 {
		return cfg.Worker.Command
	}
	exe, err := os.Executable()
	if err != nil {
		return nil
	}
	argv := []string{exe, "worker"}
	if ConfigPath != "" {
		argv = append(argv, "--config", ConfigPath)
	}
	return argv
}

// Close stops any live worker, the pump and the database.
func (s *stack) Close() {
	s.ctrl.Close()
	closeDB(s.db)
}

func initLogging(cfg *macro_cfg.MacroConfig, module string) zerolog.Logger {
	x_log.InitWithConfig(&cfg.Logger, "srtmacro")
	return x_log.New(module)
}
