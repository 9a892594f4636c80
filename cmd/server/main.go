package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/k2-expeditions/internal/app"
	"github.com/iliyamo/k2-expeditions/internal/config"
	"github.com/iliyamo/k2-expeditions/internal/database"
	"github.com/iliyamo/k2-expeditions/internal/logging"
	"github.com/iliyamo/k2-expeditions/internal/queue"
	"github.com/iliyamo/k2-expeditions/internal/repository"
	"github.com/iliyamo/k2-expeditions/internal/seed"
	"github.com/iliyamo/k2-expeditions/internal/service"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "k2",
		Short:        "K2 Climbers expedition booking API",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCommand(), newMigrateCommand(), newSeedCommand())
	return cmd
}

// bootstrap loads config and builds the logger.  The returned func flushes it.
func bootstrap() (config.Config, *zap.Logger, func(), error) {
	cfg := config.Load() // Load environment config
	log, err := logging.New(cfg.IsProd(), cfg.LogLevel)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, func() { _ = log.Sync() }, nil
}

func newServeCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, sync, err := bootstrap()
			if err != nil {
				return err
			}
			defer sync()

			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				log.Error("database connection failed", zap.Error(err))
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if migrate {
				if _, err := database.Migrate(ctx, db); err != nil {
					log.Error("migration failed", zap.Error(err))
					return err
				}
			}

			rdb := config.NewRedisClient(log)
			if rdb != nil {
				defer rdb.Close()
			}

			var events service.Publisher = service.NopPublisher{}
			if cfg.RabbitURL != "" {
				pub := service.NewAMQPPublisher(cfg.RabbitURL, log)
				defer pub.Close()
				events = pub

				consumer := &queue.ActivityConsumer{URL: cfg.RabbitURL, Dir: "logs", Log: log}
				go func() {
					if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Error("activity consumer stopped", zap.Error(err))
					}
				}()
			}

			e := app.New(app.Deps{
				Config:    cfg,
				Cache:     config.LoadCacheConfig(),
				RateLimit: config.LoadRateLimitConfig(),
				DB:        db,
				Redis:     rdb,
				Events:    events,
				Log:       log,
			})

			srv := &http.Server{
				Addr:              ":" + cfg.Port, // Address string with port
				Handler:           app.WithCORS(e, cfg.CORSOrigins),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       60 * time.Second, // uploads up to 20MB
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", zap.Error(err))
					return err
				}
				return nil
			case <-ctx.Done():
			}
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, sync, err := bootstrap()
			if err != nil {
				return err
			}
			defer sync()

			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := database.Migrate(cmd.Context(), db)
			if err != nil {
				log.Error("migration failed", zap.Error(err))
				return err
			}
			log.Info("schema applied", zap.Int("statements", n))
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo accounts, catalogue and summit history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, sync, err := bootstrap()
			if err != nil {
				return err
			}
			defer sync()

			fixture, err := loadFixture(file)
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return err
			}
			defer db.Close()

			s := &seed.Seeder{
				Users:       repository.NewUserRepo(db),
				Products:    repository.NewProductRepo(db),
				Expeditions: repository.NewExpeditionRepo(db),
				Summits:     repository.NewSummitRepo(db),
				BcryptCost:  cfg.BcryptCost,
				Log:         log,
			}
			if _, err := s.Run(cmd.Context(), fixture); err != nil {
				log.Error("seed failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML fixture to load instead of the built-in one")
	return cmd
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return seed.Parse(b)
}
