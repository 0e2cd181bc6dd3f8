package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/qforum/config"
	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/models"
	"github.com/cppla/qforum/routes"
	"github.com/cppla/qforum/store/sqlstore"
	"github.com/cppla/qforum/utils"
)

func newServeCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if port != "" {
				cfg.AppPort = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides APP_PORT)")
	return cmd
}

func runServe(ctx context.Context, cfg config.AppConfig) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	if err := utils.InitLogger(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db, err := openAndMigrate(cfg)
	if err != nil {
		return err
	}
	store := sqlstore.New(db)

	if cfg.SeedDemo {
		if err := forum.SeedDemo(ctx, store); err != nil {
			return err
		}
		utils.Sugar.Infof("demo data ensured (user %s)", forum.DemoUsername)
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	cache := utils.NewCache(utils.NewRedis(cfg), time.Duration(cfg.CacheTTLSeconds)*time.Second)

	accessLog, err := utils.NewRollingFileLogger(cfg, cfg.GinPath)
	if err != nil {
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		accessLog = nil
	}

	r := routes.SetupRouter(routes.Deps{
		Config:    cfg,
		Auth:      forum.NewAuthService(store, tokens),
		Forum:     forum.NewService(store),
		Views:     store,
		Cache:     cache,
		AccessLog: accessLog,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	return utils.GraceServer(":"+cfg.AppPort, r)
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if _, err := openAndMigrate(cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.Success.Render("Schema is up to date."))
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with demo topics, a demo user and a sample question",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := openAndMigrate(cfg)
			if err != nil {
				return err
			}
			if err := forum.SeedDemo(cmd.Context(), sqlstore.New(db)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Demo data ready. Log in as %s / %s.\n", forum.DemoUsername, forum.DemoPassword)
			return nil
		},
	}
}

func openAndMigrate(cfg config.AppConfig) (*gorm.DB, error) {
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := config.Migrate(db, models.All()...); err != nil {
		return nil, err
	}
	return db, nil
}
