package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tyler180/allstar-rosters/internal/almanac"
	"github.com/tyler180/allstar-rosters/internal/analysis"
	"github.com/tyler180/allstar-rosters/internal/databank"
	"github.com/tyler180/allstar-rosters/internal/export"
	"github.com/tyler180/allstar-rosters/internal/frame"
	"github.com/tyler180/allstar-rosters/internal/store"
	"github.com/tyler180/allstar-rosters/internal/stroop"
	"github.com/tyler180/allstar-rosters/internal/warehouse"
)

// Exported lists the local files Export wrote.
type Exported struct {
	MasterCSV     string
	MasterParquet string
	Tables        []string
}

// Export writes the player-season table as CSV and Parquet, and every
// processed table as CSV under data/tables.
func (s *Service) Export(res *databank.Result) (Exported, error) {
	defer s.Metrics.Stage("export")()

	out := Exported{MasterCSV: s.MasterCSV(), MasterParquet: s.MasterParquet()}
	if err := res.Master.SaveCSV(out.MasterCSV); err != nil {
		return out, err
	}
	if err := export.SaveParquet(out.MasterParquet, masterName, res.Master); err != nil {
		return out, err
	}
	tables := make(map[string]*frame.Frame, len(res.Tables))
	for d, f := range res.Tables {
		tables[string(d)] = f
	}
	paths, err := export.SaveCSVs(filepath.Join(s.Cfg.DataDirPath(), "tables"), tables)
	out.Tables = paths
	if err != nil {
		return out, err
	}
	s.Log.Info("exported player-season table", "csv", out.MasterCSV, "parquet", out.MasterParquet, "tables", len(paths))
	return out, nil
}

// Plan reads analysis.yaml from the workspace, falling back to the
// embedded default.
func (s *Service) Plan() (analysis.Plan, error) {
	b, err := s.Cfg.ReadConfigFile(planFile)
	if err != nil {
		return analysis.Plan{}, err
	}
	return analysis.ParsePlan(b)
}

// Analyze writes the correlation report, plots and comparative statistics
// for master.
func (s *Service) Analyze(ctx context.Context, master *frame.Frame) (*analysis.Report, error) {
	defer s.Metrics.Stage("analyze")()

	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}
	r := &analysis.Runner{Plan: plan, Paths: s.Cfg, Log: s.Log.With("component", "analysis")}
	return r.Run(ctx, master)
}

// Published summarises what Publish wrote. Zero values mean the target was
// not configured.
type Published struct {
	ParquetKey   string
	CSVKey       string
	AthenaRows   int64
	DynamoItems  int
	PostgresRows int64
}

// Publish pushes master to every configured target: Parquet and CSV to
// S3, an Athena external table over the Parquet prefix, the DynamoDB
// serving table and a Postgres copy.
func (s *Service) Publish(ctx context.Context, master *frame.Frame) (Published, error) {
	defer s.Metrics.Stage("publish")()

	var out Published
	targets := 0
	if s.Store != nil {
		targets++
		b, err := export.ParquetBytes(masterName, master)
		if err != nil {
			return out, err
		}
		key := s.Store.Key(parquetDir, masterName+".parquet")
		if err := s.Store.Put(ctx, key, b, "application/vnd.apache.parquet"); err != nil {
			return out, err
		}
		out.ParquetKey = key

		key = s.Store.Key(exportDir, masterName+".csv")
		if err := s.Store.PutCSV(ctx, key, master); err != nil {
			return out, err
		}
		out.CSVKey = key
		s.Log.Info("published to s3", "bucket", s.Cfg.AWS.Bucket, "parquet", out.ParquetKey, "csv", out.CSVKey)
	}

	if s.Athena != nil {
		if s.Store == nil {
			return out, errors.Wrap(ErrNoBucket, "athena table needs the parquet prefix")
		}
		targets++
		a := s.Cfg.AWS
		drop := warehouse.BuildDrop(a.AthenaDatabase, a.AthenaTable)
		create := warehouse.BuildCreateExternal(a.AthenaDatabase, a.AthenaTable, export.Columns(master), s.parquetLocation())
		if err := s.Athena.Recreate(ctx, drop, create); err != nil {
			return out, err
		}
		n, err := s.Athena.CountRows(ctx, s.athenaTable())
		if err != nil {
			return out, err
		}
		out.AthenaRows = n
		s.Log.Info("athena table registered", "table", s.athenaTable(), "rows", n)
	}

	if s.Dynamo != nil && s.Cfg.AWS.DynamoTable != "" {
		targets++
		n, err := store.PutPlayerSeasons(ctx, s.Dynamo, s.Cfg.AWS.DynamoTable, master)
		if err != nil {
			return out, err
		}
		out.DynamoItems = n
		s.Log.Info("dynamodb items written", "table", s.Cfg.AWS.DynamoTable, "items", n)
	}

	if s.Cfg.PostgresURL != "" {
		targets++
		pg, err := store.OpenPostgres(ctx, s.Cfg.PostgresURL)
		if err != nil {
			return out, err
		}
		defer pg.Close()
		if err := pg.Replace(ctx, masterName, master); err != nil {
			return out, err
		}
		if out.PostgresRows, err = pg.CountRows(ctx, masterName); err != nil {
			return out, err
		}
		s.Log.Info("postgres table replaced", "table", masterName, "rows", out.PostgresRows)
	}

	if targets == 0 {
		s.Log.Warn("no publish targets configured")
	}
	return out, nil
}

// Season reads one season back from the DynamoDB serving table.
func (s *Service) Season(ctx context.Context, year int, cols ...string) (*frame.Frame, error) {
	if s.Dynamo == nil || s.Cfg.AWS.DynamoTable == "" {
		return nil, ErrNoDynamo
	}
	return store.LoadSeason(ctx, s.Dynamo, s.Cfg.AWS.DynamoTable, year, cols...)
}

// NamedQueries are the canned reports Query accepts by name.
var NamedQueries = map[string]func(from string) string{
	"count":         warehouse.BuildCount,
	"sample":        func(from string) string { return warehouse.BuildSample(from, 20) },
	"position-rate": warehouse.BuildAllStarRateByPosition,
	"year-summary":  warehouse.BuildYearSummary,
}

func resolveQuery(q, from string) string {
	if build, ok := NamedQueries[strings.TrimSpace(q)]; ok {
		return build(from)
	}
	return q
}

// Query runs a named report or raw SQL. Locally the player-season Parquet
// export is exposed to DuckDB as player_seasons; otherwise the query goes
// to Athena.
func (s *Service) Query(ctx context.Context, q string, local bool) (*frame.Frame, error) {
	if !local {
		if s.Athena == nil {
			return nil, ErrNoAthena
		}
		return s.Athena.QueryFrame(ctx, resolveQuery(q, s.athenaTable()))
	}

	if _, err := os.Stat(s.MasterParquet()); err != nil {
		return nil, errors.Wrapf(ErrNoMaster, "%s", s.MasterParquet())
	}
	db, err := warehouse.OpenDuckDB("")
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.RegisterParquet(ctx, masterName, s.MasterParquet()); err != nil {
		return nil, err
	}
	return db.QueryFrame(ctx, resolveQuery(q, masterName))
}

// Viewership analyses All-Star game TV viewership from src, an http(s)
// URL or a local CSV/HTML file; empty means the configured URL. The
// first/last comparison is written to data/ and, when a bucket is set,
// to the object store.
func (s *Service) Viewership(ctx context.Context, src string) (*frame.Frame, error) {
	defer s.Metrics.Stage("viewership")()

	if src == "" {
		src = s.Cfg.ViewershipURL
	}
	if src == "" {
		return nil, ErrNoViewURL
	}
	var (
		b   []byte
		err error
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		b, err = s.Downloader.Fetch(ctx, src)
	} else {
		b, err = os.ReadFile(src)
		err = errors.Wrapf(err, "read %s", src)
	}
	if err != nil {
		return nil, err
	}
	raw, err := almanac.Parse(b)
	if err != nil {
		return nil, err
	}
	out, err := almanac.Analyze(raw, s.Cfg.ViewershipWin)
	if err != nil {
		return nil, err
	}
	path := s.Cfg.DataPath(almanac.OutputFile)
	if err := out.SaveCSV(path); err != nil {
		return nil, err
	}
	if s.Store != nil {
		if err := s.Store.PutCSV(ctx, s.Store.Key(exportDir, almanac.OutputFile), out); err != nil {
			return nil, err
		}
	}
	s.Log.Info("viewership analysed", "rows", raw.Len(), "window", s.Cfg.ViewershipWin, "out", path)
	return out, nil
}

// Stroop runs the Stroop experiment report over the CSV at path.
func (s *Service) Stroop(path string) (stroop.TTest, error) {
	fh, err := os.Open(path)
	if err != nil {
		return stroop.TTest{}, errors.Wrapf(err, "open %s", path)
	}
	defer fh.Close()
	f, err := stroop.Load(fh)
	if err != nil {
		return stroop.TTest{}, err
	}
	res, err := stroop.Run(f, s.Cfg)
	if err != nil {
		return stroop.TTest{}, err
	}
	s.Log.Info("stroop test", "t", res.T, "df", res.DF, "p", res.P, "n", res.N)
	return res, nil
}

// RunOptions selects the stages of a full run.
type RunOptions struct {
	// Files limits the download; empty means every catalogued file.
	Files []string
	// FromStore builds from <prefix>/databank/ instead of downloading.
	FromStore bool
	// UploadRaw copies the downloaded CSVs to the object store.
	UploadRaw bool
	Analyze   bool
	Publish   bool
}

// RunReport summarises a full run.
type RunReport struct {
	Downloaded int
	Failed     int
	MasterRows int
	Exported   Exported
	Analysis   *analysis.Report
	Published  Published
	Took       time.Duration
}

// Run downloads, builds, exports and optionally analyses and publishes
// the player-season table. Metrics are written to the configured
// textfile whether or not the run succeeds.
func (s *Service) Run(ctx context.Context, opts RunOptions) (rep *RunReport, err error) {
	start := time.Now()
	defer func() {
		if werr := s.Metrics.WriteTextfile(s.Cfg.MetricsFile); werr != nil {
			s.Log.Warn("write metrics", "error", werr)
		}
	}()

	rep = &RunReport{}
	if !opts.FromStore {
		dl, err := s.Download(ctx, opts.Files...)
		if err != nil {
			return nil, err
		}
		rep.Downloaded, rep.Failed = len(dl.Saved), len(dl.Failed)
		if opts.UploadRaw {
			if err := s.UploadRaw(ctx, dl.Saved); err != nil {
				return nil, err
			}
		}
	}

	src, err := s.Source(opts.FromStore)
	if err != nil {
		return nil, err
	}
	res, err := s.Build(ctx, src)
	if err != nil {
		return nil, err
	}
	rep.MasterRows = res.Master.Len()

	if rep.Exported, err = s.Export(res); err != nil {
		return nil, err
	}
	if opts.Analyze {
		if rep.Analysis, err = s.Analyze(ctx, res.Master); err != nil {
			return nil, err
		}
	}
	if opts.Publish {
		if rep.Published, err = s.Publish(ctx, res.Master); err != nil {
			return nil, err
		}
	}

	s.Metrics.MarkSuccess()
	rep.Took = time.Since(start)
	s.Log.Info("pipeline run finished", "rows", rep.MasterRows, "downloaded", rep.Downloaded, "failed", rep.Failed, "took", rep.Took)
	return rep, nil
}
