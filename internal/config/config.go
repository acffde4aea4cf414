package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/tyler180/allstar-rosters/configs"
	"github.com/tyler180/allstar-rosters/internal/logging"
)

var (
	ErrEnvFileNotFound = errors.New("env file not found")
	ErrEnvKeyNotFound  = errors.New("env key not found")
)

const defaultEnvFile = ".env"

// AWS holds the optional cloud publishing settings. Empty values disable
// the matching publisher.
type AWS struct {
	Region          string
	Bucket          string
	Prefix          string
	AthenaDatabase  string
	AthenaWorkgroup string
	AthenaOutput    string `validate:"omitempty,startswith=s3://"`
	AthenaTable     string
	DynamoTable     string
}

// Config stores runtime configuration for the pipeline.
type Config struct {
	EnvFile         string
	WorkspaceDir    string        `validate:"required"`
	SourceURL       string        `validate:"required,url"`
	DataDir         string        `validate:"required"`
	AnalysisDir     string        `validate:"required"`
	ViewershipURL   string        `validate:"omitempty,url"`
	ViewershipWin   int           `validate:"min=2"`
	DownloadWorkers int           `validate:"min=1,max=64"`
	HTTPTimeout     time.Duration `validate:"gt=0"`
	ExcludePitchers bool
	MetricsFile     string
	PostgresURL     string
	LogLevel        logging.Level
	AWS             AWS

	env map[string]string
}

// LoadOptions overrides what would otherwise come from the environment.
type LoadOptions struct {
	// EnvFile must exist when set. When empty, ./.env is read if present.
	EnvFile      string
	WorkspaceDir string
}

func Load(opts LoadOptions) (Config, error) {
	env, envFile, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return Config{}, err
	}
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		if v := strings.TrimSpace(env[key]); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{EnvFile: envFile, env: env}

	cfg.WorkspaceDir = opts.WorkspaceDir
	if cfg.WorkspaceDir == "" {
		cwd, _ := os.Getwd()
		cfg.WorkspaceDir = get("WORKSPACE_DIR", cwd)
	}

	mainIni, err := cfg.loadINI("main_config.ini")
	if err != nil {
		return Config{}, err
	}
	bd := mainIni.Section("baseball_databank")
	cfg.SourceURL = strings.TrimRight(get("DATABANK_SOURCE_URL", bd.Key("source_url").String()), "/")
	cfg.DataDir = get("DATABANK_DATA_DIR", bd.Key("data_dir").MustString("downloads"))
	cfg.AnalysisDir = mainIni.Section("analysis").Key("output_dir").MustString("analysis")
	cfg.ViewershipURL = mainIni.Section("almanac").Key("viewership_url").String()
	cfg.ViewershipWin = mainIni.Section("almanac").Key("window").MustInt(10)

	if cfg.DownloadWorkers, err = strconv.Atoi(get("DOWNLOAD_WORKERS", "4")); err != nil {
		return Config{}, errors.Wrap(err, "parse DOWNLOAD_WORKERS")
	}
	if cfg.HTTPTimeout, err = time.ParseDuration(get("HTTP_TIMEOUT", "60s")); err != nil {
		return Config{}, errors.Wrap(err, "parse HTTP_TIMEOUT")
	}
	cfg.ExcludePitchers = parseBool(get("EXCLUDE_PITCHERS", "false"))
	cfg.MetricsFile = get("METRICS_FILE", "")
	cfg.PostgresURL = get("POSTGRES_URL", "")
	cfg.LogLevel = logging.ParseLevel(get("LOG_LEVEL", "info"))

	cfg.AWS = AWS{
		Region:          get("AWS_REGION", "us-west-2"),
		Bucket:          get("DATA_BUCKET", ""),
		Prefix:          strings.Trim(get("DATA_PREFIX", "allstar-rosters"), "/"),
		AthenaDatabase:  get("ATHENA_DB", ""),
		AthenaWorkgroup: get("ATHENA_WORKGROUP", "primary"),
		AthenaOutput:    get("ATHENA_OUTPUT", ""),
		AthenaTable:     get("ATHENA_TABLE", "player_seasons"),
		DynamoTable:     get("DYNAMO_TABLE", ""),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "validate config")
	}
	return cfg, nil
}

func readEnvFile(path string) (map[string]string, string, error) {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, "", errors.Mark(errors.Wrapf(err, "env file %s", path), ErrEnvFileNotFound)
		}
		return map[string]string{}, "", nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "read env file %s", path)
	}
	return env, path, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

// EnvValue returns a key defined in the env file.
func (c Config) EnvValue(key string) (string, error) {
	v, ok := c.env[key]
	if !ok {
		return "", errors.Wrapf(ErrEnvKeyNotFound, "%s not in %q", key, c.EnvFile)
	}
	return v, nil
}

// ConfigDir is the workspace override directory for configuration files.
func (c Config) ConfigDir() string { return filepath.Join(c.WorkspaceDir, "configs") }

// ReadConfigFile returns the workspace copy of name when present, else the
// embedded default.
func (c Config) ReadConfigFile(name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(c.ConfigDir(), name))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	b, err = fs.ReadFile(configs.FS, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read embedded %s", name)
	}
	return b, nil
}

// loadINI layers the workspace file over the embedded default.
func (c Config) loadINI(name string) (*ini.File, error) {
	def, err := fs.ReadFile(configs.FS, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read embedded %s", name)
	}
	f, err := ini.LooseLoad(def, filepath.Join(c.ConfigDir(), name))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	return f, nil
}

// DownloadPath is where databank CSVs land.
func (c Config) DownloadPath() string {
	if filepath.IsAbs(c.DataDir) {
		return c.DataDir
	}
	return filepath.Join(c.WorkspaceDir, c.DataDir)
}

// PlotPath returns <workspace>/<analysis>/plots/<name>.png.
func (c Config) PlotPath(name string) string {
	return filepath.Join(c.WorkspaceDir, c.AnalysisDir, "plots", strings.TrimSuffix(name, ".png")+".png")
}

// DataPath returns <workspace>/<analysis>/data/<name>.
func (c Config) DataPath(name string) string {
	return filepath.Join(c.WorkspaceDir, c.AnalysisDir, "data", name)
}

// PlotDir and DataDirPath are the directories behind PlotPath and DataPath.
func (c Config) PlotDir() string     { return filepath.Join(c.WorkspaceDir, c.AnalysisDir, "plots") }
func (c Config) DataDirPath() string { return filepath.Join(c.WorkspaceDir, c.AnalysisDir, "data") }
