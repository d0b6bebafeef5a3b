package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/casework/deltatree/internal/casefile"
	"github.com/casework/deltatree/internal/config"
	"github.com/casework/deltatree/internal/header"
	"github.com/casework/deltatree/internal/lock"
	"github.com/casework/deltatree/internal/logging"
	"github.com/casework/deltatree/internal/storage"
	"github.com/casework/deltatree/internal/vault"
)

// loadConfig reads the config file and applies command line overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadFile(configFlag)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, cfg.Logging.Format, logging.LevelFromString(cfg.Logging.Level))
}

// newService wires the service from config. The returned closer releases
// the database and codec.
func newService() (*casefile.Service, func(), error) {
	if userFlag == "" {
		return nil, nil, fmt.Errorf("no user id: pass --user")
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)

	key, err := cfg.MasterKey()
	if err != nil {
		return nil, nil, err
	}
	v, err := vault.New(key, cfg.Vault.Compression)
	if err != nil {
		return nil, nil, err
	}

	db, err := storage.Open(cfg.DataDir, storage.Options{
		BusyRetries: cfg.Storage.BusyRetries,
		BusyBackoff: time.Duration(cfg.Storage.BusyBackoffMs) * time.Millisecond,
	}, logger)
	if err != nil {
		v.Close()
		return nil, nil, err
	}

	store := storage.NewStore(db, lock.NewRegistry())
	calc := header.NewCalculator(cfg.HeaderPaths(), logger)
	closer := func() {
		v.Close()
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
	return casefile.New(store, v, calc, logger), closer, nil
}

func newContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
