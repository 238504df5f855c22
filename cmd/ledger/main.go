package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bank-ledger/pkg/api"
	"bank-ledger/pkg/bank"
	"bank-ledger/pkg/cli"
	"bank-ledger/pkg/config"
	"bank-ledger/pkg/logging"
	promMetrics "bank-ledger/pkg/metrics/prometheus"
	"bank-ledger/pkg/storage"
	"bank-ledger/pkg/teller"
	"bank-ledger/pkg/writer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var configPath string

	root := &cobra.Command{
		Use:          "ledger",
		Short:        "Personal banking ledger",
		Long:         "Opens checking and savings accounts, records transactions and applies monthly interest and fees.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, configPath, "stderr")
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return cli.NewMenu(a.teller, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (yaml, toml or json)")
	root.PersistentFlags().String("store", "", "snapshot store backend (file, memory, redis, postgres)")
	root.PersistentFlags().String("store-path", "", "snapshot file for the file backend")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("store.backend", root.PersistentFlags().Lookup("store"))
	_ = v.BindPFlag("store.path", root.PersistentFlags().Lookup("store-path"))
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newServeCmd(v, &configPath), newReportCmd(v, &configPath))
	return root
}

func newServeCmd(v *viper.Viper, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, *configPath, "stdout")
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.teller.Load(cmd.Context()); err != nil && !storage.IsNotFound(err) && !errors.Is(err, teller.ErrNoStore) {
				a.logger.Warn("starting with an empty ledger", zap.Error(err))
			}

			serverConfig := api.DefaultServerConfig()
			serverConfig.Address = a.config.HTTP.Address
			serverConfig.ReadTimeout = a.config.HTTP.ReadTimeout
			serverConfig.WriteTimeout = a.config.HTTP.WriteTimeout
			serverConfig.IdleTimeout = a.config.HTTP.IdleTimeout

			srv, err := api.NewServer(a.teller, a.registry, serverConfig)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			a.logger.Info("shutting down server")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				a.logger.Error("server shutdown error", zap.Error(err))
			}
			if _, err := a.teller.Save(ctx); err != nil && !errors.Is(err, teller.ErrNoStore) {
				a.logger.Error("final save failed", zap.Error(err))
			}

			a.logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = v.BindPFlag("http.address", cmd.Flags().Lookup("addr"))
	return cmd
}

func newReportCmd(v *viper.Viper, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print a table of accounts from the saved ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, *configPath, "stderr")
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.teller.Load(cmd.Context()); err != nil {
				return fmt.Errorf("load ledger: %w", err)
			}
			cli.WriteReport(cmd.OutOrStdout(), a.teller.Accounts())
			return nil
		},
	}
}

// app holds everything a command needs, built from configuration.
type app struct {
	config   config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	store    storage.Store
	autosave *writer.AsyncWriter
	teller   *teller.Teller
}

func newApp(v *viper.Viper, configPath, logOutput string) (*app, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, err
	}

	logConfig := cfg.Log.Logging()
	logConfig.OutputPaths = []string{logOutput}
	logger, err := logging.NewLogger(logConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.SetGlobal(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := promMetrics.NewPrometheusCollector(cfg.Metrics.Namespace)
	if err := collector.Register(registry); err != nil {
		return nil, err
	}

	terms, err := cfg.Ledger.Terms()
	if err != nil {
		return nil, err
	}

	store, err := cfg.OpenStore(collector)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{
		config:   cfg,
		logger:   logger,
		registry: registry,
		store:    store,
	}

	if cfg.Autosave.Enabled {
		a.autosave = writer.NewAsyncWriterWithMetrics(store, writer.AsyncWriterConfig{
			QueueSize:   cfg.Autosave.QueueSize,
			MaxWaitTime: cfg.Autosave.MaxWait,
		}, collector)
	}

	a.teller = teller.New(bank.New(bank.WithConfig(terms)), teller.Config{
		Store:    store,
		Autosave: a.autosave,
		Metrics:  collector,
		Logger:   logger,
	})

	logger.Debug("ledger ready",
		logging.Store(store.Name()),
		zap.Bool("autosave", cfg.Autosave.Enabled),
	)
	return a, nil
}

func (a *app) close() {
	if a.autosave != nil {
		if err := a.autosave.Flush(5 * time.Second); err != nil {
			a.logger.Warn("autosave flush incomplete", zap.Error(err))
		}
		a.autosave.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", zap.Error(err))
	}
	a.logger.Sync()
}
