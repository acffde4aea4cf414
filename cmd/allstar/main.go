package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tyler180/allstar-rosters/internal/app/pipeline"
	"github.com/tyler180/allstar-rosters/internal/config"
	"github.com/tyler180/allstar-rosters/internal/logging"
)

var (
	envFile   string
	workspace string
	logLevel  string
	logJSON   bool

	svc *pipeline.Service
)

var rootCmd = &cobra.Command{
	Use:   "allstar",
	Short: "Build and analyse MLB All-Star rosters from the Baseball Databank",
	Long: `allstar downloads the Baseball Databank, builds one row per player,
team and season, and reports which player attributes go with All-Star
selection. Results can be published to S3, Athena, DynamoDB and Postgres.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if svc == nil {
			return
		}
		if err := svc.Metrics.WriteTextfile(svc.Cfg.MetricsFile); err != nil {
			svc.Log.Warn("write metrics", "error", err)
		}
		_ = svc.Log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to read (default: ./.env when present)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: WORKSPACE_DIR or the current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default: LOG_LEVEL or info)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log JSON lines instead of console text")
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoadOptions{EnvFile: envFile, WorkspaceDir: workspace})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logging.ParseLevel(logLevel)
	}
	log := logging.NewConsole(level)
	if logJSON {
		log = logging.NewJSON(level)
	}
	logging.SetDefault(log)

	svc, err = pipeline.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}
	log.Debug("config loaded", "workspace", cfg.WorkspaceDir, "env_file", cfg.EnvFile, "bucket", cfg.AWS.Bucket)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
