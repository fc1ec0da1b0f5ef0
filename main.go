package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"storefront/auth"
	"storefront/config"
	"storefront/handler"
	"storefront/localstore"
	"storefront/service"
	"storefront/store"
)

//go:embed migrations.sql
var migrationSQL string

var (
	cfgPath string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "storefront - e-commerce API server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		zcfg := zap.NewProductionConfig()
		switch cfg.LogLevel {
		case "debug":
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		case "warn":
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		case "error":
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run database migrations and start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		st, err := store.NewPostgresStore(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer st.Close()
		if _, err := st.DB.Exec(migrationSQL); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		logger.Info("migrations applied")
		return nil
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	fee, err := cfg.Fee()
	if err != nil {
		return err
	}

	st, err := store.NewPostgresStore(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db connection failed: %w", err)
	}
	defer st.Close()

	if _, err := st.DB.Exec(migrationSQL); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	logger.Info("migrations applied")

	local, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		return fmt.Errorf("local store failed: %w", err)
	}
	defer local.Close()

	svc := service.NewService(st, local, fee, logger)
	au := auth.NewPostgresAuth(st.DB)
	h := handler.NewHandler(svc, au, logger)

	r := mux.NewRouter()
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server running", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "storefront.yaml", "path to config file")
	rootCmd.AddCommand(serveCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
