package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"weekPlanner/internal/app"
	"weekPlanner/internal/config"
	"weekPlanner/internal/logger"
	"weekPlanner/internal/repository/task/postgres"
)

func main() {
	root := &cobra.Command{
		Use:   "weekplanner",
		Short: "Бэкенд недельного планировщика задач",
	}

	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP-сервер",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a := app.New(cfg)
			if err := a.Init(ctx); err != nil {
				return err
			}
			defer a.Shutdown()

			return a.Run(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Управление миграциями схемы",
	}

	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Применить миграции",
			RunE: func(cmd *cobra.Command, args []string) error {
				pg, err := openPostgres(cmd.Context())
				if err != nil {
					return err
				}
				defer pg.Close()
				return pg.Migrate()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Откатить миграции",
			RunE: func(cmd *cobra.Command, args []string) error {
				pg, err := openPostgres(cmd.Context())
				if err != nil {
					return err
				}
				defer pg.Close()
				return pg.MigrateDown()
			},
		},
	)
	return migrate
}

func openPostgres(ctx context.Context) (*postgres.Storage, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Development); err != nil {
		return nil, err
	}

	return postgres.New(ctx, cfg.Database.URL, postgres.Options{
		MaxConns: 2,
		MinConns: 1,
	})
}
