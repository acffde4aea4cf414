// Package pipeline wires the databank stages together for the CLI and the
// Lambda handler.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"

	"github.com/tyler180/allstar-rosters/internal/config"
	"github.com/tyler180/allstar-rosters/internal/databank"
	"github.com/tyler180/allstar-rosters/internal/download"
	"github.com/tyler180/allstar-rosters/internal/frame"
	"github.com/tyler180/allstar-rosters/internal/logging"
	"github.com/tyler180/allstar-rosters/internal/metrics"
	"github.com/tyler180/allstar-rosters/internal/objectstore"
	"github.com/tyler180/allstar-rosters/internal/store"
	"github.com/tyler180/allstar-rosters/internal/warehouse"
)

const (
	filenamesFile = "databank_filenames.json"
	headersFile   = "databank_headers.ini"
	planFile      = "analysis.yaml"

	masterName = "player_seasons"
	// object store layout below the configured prefix
	rawDir     = "databank"
	parquetDir = "player_seasons"
	exportDir  = "exports"
)

var (
	ErrNoBucket  = errors.New("no DATA_BUCKET configured")
	ErrNoAthena  = errors.New("no ATHENA_DB configured")
	ErrNoDynamo  = errors.New("no DYNAMO_TABLE configured")
	ErrNoMaster  = errors.New("player-season table not built yet")
	ErrNoViewURL = errors.New("no viewership url configured")
)

// Clients are the AWS services the pipeline can publish to. Nil clients
// disable the matching stage.
type Clients struct {
	S3     objectstore.S3API
	Athena warehouse.AthenaAPI
	Dynamo store.DynamoDBAPI
}

// Service holds everything a pipeline run needs.
type Service struct {
	Cfg        config.Config
	Log        *logging.Logger
	Metrics    *metrics.Collector
	Catalog    *databank.Catalog
	Headers    databank.Headers
	Downloader *download.Downloader

	Store  *objectstore.Store
	Athena *warehouse.Runner
	Dynamo store.DynamoDBAPI
}

// New builds a Service, creating AWS clients only for the services that
// are configured.
func New(ctx context.Context, cfg config.Config, log *logging.Logger) (*Service, error) {
	var cl Clients
	a := cfg.AWS
	if a.Bucket != "" || a.AthenaDatabase != "" || a.DynamoTable != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(a.Region))
		if err != nil {
			return nil, errors.Wrap(err, "load aws config")
		}
		if a.Bucket != "" {
			cl.S3 = s3.NewFromConfig(awsCfg)
		}
		if a.AthenaDatabase != "" {
			cl.Athena = athena.NewFromConfig(awsCfg)
		}
		if a.DynamoTable != "" {
			cl.Dynamo = dynamodb.NewFromConfig(awsCfg)
		}
	}
	return NewWithClients(cfg, log, cl)
}

// NewWithClients builds a Service over caller-supplied clients.
func NewWithClients(cfg config.Config, log *logging.Logger, cl Clients) (*Service, error) {
	if log == nil {
		log = logging.Default()
	}
	names, err := cfg.ReadConfigFile(filenamesFile)
	if err != nil {
		return nil, err
	}
	catalog, err := databank.NewCatalog(cfg.SourceURL, names)
	if err != nil {
		return nil, err
	}
	hb, err := cfg.ReadConfigFile(headersFile)
	if err != nil {
		return nil, err
	}
	headers, err := databank.LoadHeaders(hb)
	if err != nil {
		return nil, err
	}

	s := &Service{
		Cfg:        cfg,
		Log:        log,
		Metrics:    metrics.NewCollector(),
		Catalog:    catalog,
		Headers:    headers,
		Downloader: download.New(cfg.DownloadPath(), cfg.HTTPTimeout, cfg.DownloadWorkers, log.With("component", "download")),
		Dynamo:     cl.Dynamo,
	}
	if cl.S3 != nil && cfg.AWS.Bucket != "" {
		s.Store = objectstore.New(cl.S3, cfg.AWS.Bucket, cfg.AWS.Prefix)
	}
	if cl.Athena != nil && cfg.AWS.AthenaDatabase != "" {
		s.Athena = &warehouse.Runner{
			Client:    cl.Athena,
			Workgroup: cfg.AWS.AthenaWorkgroup,
			Database:  cfg.AWS.AthenaDatabase,
			OutputS3:  cfg.AWS.AthenaOutput,
			Log:       log.With("component", "athena"),
		}
	}
	return s, nil
}

// Download fetches the named databank files, or all of them when names is
// empty, into the download directory.
func (s *Service) Download(ctx context.Context, names ...string) (download.Result, error) {
	defer s.Metrics.Stage("download")()

	valid, err := s.Catalog.DownloadFilenames(s.Log, names...)
	if err != nil {
		return download.Result{}, err
	}
	res, err := s.Downloader.DownloadAll(ctx, s.Catalog.DownloadURLs(valid))
	if err != nil {
		return download.Result{}, err
	}
	s.Metrics.ObserveDownloads(len(res.Saved), len(res.Failed))
	s.Log.Info("download finished", "saved", len(res.Saved), "failed", len(res.Failed), "dir", s.Downloader.SaveDir)
	return res, nil
}

// UploadRaw copies downloaded CSVs to <prefix>/databank/ so later runs can
// build from the object store.
func (s *Service) UploadRaw(ctx context.Context, paths []string) error {
	if s.Store == nil {
		return ErrNoBucket
	}
	for _, p := range paths {
		key := s.Store.Key(rawDir, filepath.Base(p))
		if err := s.Store.PutFile(ctx, key, p, "text/csv"); err != nil {
			return err
		}
		s.Log.Debug("uploaded raw file", "key", key)
	}
	s.Log.Info("raw files uploaded", "count", len(paths), "bucket", s.Cfg.AWS.Bucket)
	return nil
}

// Source reads raw tables from the object store when fromStore is set,
// else from the download directory.
func (s *Service) Source(fromStore bool) (databank.Source, error) {
	if !fromStore {
		return databank.DirSource(s.Cfg.DownloadPath()), nil
	}
	if s.Store == nil {
		return nil, ErrNoBucket
	}
	return databank.BlobSource{Store: s.Store, Prefix: s.Store.Key(rawDir)}, nil
}

// Build processes every databank table from src and assembles the
// player-season table.
func (s *Service) Build(ctx context.Context, src databank.Source) (*databank.Result, error) {
	defer s.Metrics.Stage("build")()

	b := &databank.Builder{
		Processor: &databank.Processor{
			Source:          src,
			Headers:         s.Headers,
			Log:             s.Log.With("component", "databank"),
			ExcludePitchers: s.Cfg.ExcludePitchers,
		},
		Workers:  s.Cfg.DownloadWorkers,
		Recorder: s.Metrics,
		Log:      s.Log,
	}
	res, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	s.Metrics.SetMasterRows(res.Master.Len())
	return res, nil
}

// MasterCSV and MasterParquet are the local player-season exports.
func (s *Service) MasterCSV() string     { return s.Cfg.DataPath(masterName + ".csv") }
func (s *Service) MasterParquet() string { return s.Cfg.DataPath(masterName + ".parquet") }

// LoadMaster reads the player-season CSV written by a previous Export.
func (s *Service) LoadMaster() (*frame.Frame, error) {
	fh, err := os.Open(s.MasterCSV())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(ErrNoMaster, "%s", s.MasterCSV())
		}
		return nil, errors.Wrap(err, "open player-season csv")
	}
	defer fh.Close()
	return databank.ReadMaster(fh)
}

func (s *Service) athenaTable() string {
	return fmt.Sprintf("%s.%s", s.Cfg.AWS.AthenaDatabase, s.Cfg.AWS.AthenaTable)
}

func (s *Service) parquetLocation() string {
	return "s3://" + s.Cfg.AWS.Bucket + "/" + strings.TrimSuffix(s.Store.Key(parquetDir), "/") + "/"
}
