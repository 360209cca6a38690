package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ggjyx4/master-material-Glendon/internal/config"
	"github.com/ggjyx4/master-material-Glendon/internal/material/entity"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "material",
		Short:   "Material master service",
		Version: Version,
		Long: `Material master keeps versioned material documents (fabrics, trims, ...)
with their technical and cost data, SKU variants and media.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the material tables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := bootstrap()
			if err != nil {
				return err
			}
			defer zapLogger.Sync()

			db, err := initDatabase(cfg.Database)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(entity.Models()...); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			zapLogger.Info("Material tables migrated")

			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

// bootstrap 加载 .env、配置与日志
func bootstrap() (*config.Config, *zap.Logger, error) {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, zapLogger, nil
}
