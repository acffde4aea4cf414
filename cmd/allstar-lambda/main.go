package main

import (
	"context"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tyler180/allstar-rosters/internal/app/pipeline"
	"github.com/tyler180/allstar-rosters/internal/config"
	"github.com/tyler180/allstar-rosters/internal/logging"
)

// Event selects what a scheduled or manual invocation does. The zero
// value downloads every file, copies the raw CSVs to the bucket, builds
// and publishes.
type Event struct {
	Files       []string `json:"files"`
	FromStore   bool     `json:"from_store"`
	SkipUpload  bool     `json:"skip_upload"`
	SkipPublish bool     `json:"skip_publish"`
	Analyze     bool     `json:"analyze"`
}

func handler(ctx context.Context, e Event) (map[string]any, error) {
	// Lambda only allows writes below /tmp.
	ws := strings.TrimSpace(os.Getenv("WORKSPACE_DIR"))
	if ws == "" {
		ws = os.TempDir()
	}
	cfg, err := config.Load(config.LoadOptions{WorkspaceDir: ws})
	if err != nil {
		return nil, err
	}
	log := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(log)
	defer log.Sync()

	svc, err := pipeline.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("allstar pipeline invoked", "files", e.Files, "from_store", e.FromStore, "publish", !e.SkipPublish)

	rep, err := svc.Run(ctx, pipeline.RunOptions{
		Files:     e.Files,
		FromStore: e.FromStore,
		UploadRaw: !e.FromStore && !e.SkipUpload && cfg.AWS.Bucket != "",
		Analyze:   e.Analyze,
		Publish:   !e.SkipPublish,
	})
	if err != nil {
		log.Error("allstar pipeline failed", "error", err)
		return nil, err
	}
	return map[string]any{
		"ok":            true,
		"master_rows":   rep.MasterRows,
		"downloaded":    rep.Downloaded,
		"failed":        rep.Failed,
		"parquet_key":   rep.Published.ParquetKey,
		"athena_table":  cfg.AWS.AthenaDatabase + "." + cfg.AWS.AthenaTable,
		"athena_rows":   rep.Published.AthenaRows,
		"dynamo_items":  rep.Published.DynamoItems,
		"postgres_rows": rep.Published.PostgresRows,
		"took":          rep.Took.String(),
	}, nil
}

func main() {
	lambda.Start(handler)
}
