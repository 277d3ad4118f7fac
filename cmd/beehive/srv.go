package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"beehive/internal/config"
	"beehive/internal/server"
	"beehive/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the beehive API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			taskStore, closeStore, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			return server.New(addr, taskStore, logger).ListenAndServe()
		},
	}
}

func openStore(cfg *config.Config, logger *slog.Logger) (store.TaskStore, func(), error) {
	switch cfg.Backend {
	case config.BackendFile:
		path, err := cfg.ResolveDataPath()
		if err != nil {
			return nil, nil, err
		}
		logger.Info("opening file store", "path", path)
		fs, err := store.OpenFile(path)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	default:
		path, err := cfg.ResolveDBPath()
		if err != nil {
			return nil, nil, err
		}
		logger.Info("opening database", "path", path)
		st, err := store.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	}
}
