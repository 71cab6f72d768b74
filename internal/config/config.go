package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "loanprep/internal/errors"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "LOANPREP"

// Empty-column modes
const (
	EmptyColumnsDataset = "dataset"
	EmptyColumnsChunk   = "chunk"
)

// Malformed-row policies
const (
	MalformedSkip = "skip"
	MalformedFail = "fail"
)

// Config represents the complete application configuration
type Config struct {
	ConfigFile string          `yaml:"-" envconfig:"CONFIG_FILE"`
	Pipeline   PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Logging    LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry  TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Paths      PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Jobs       []JobConfig     `yaml:"jobs" ignored:"true" validate:"dive"`
}

// PipelineConfig holds the defaults applied to every job
type PipelineConfig struct {
	ChunkSize        int           `yaml:"chunk_size" envconfig:"CHUNK_SIZE" default:"50000" validate:"min=1"`
	EmptyColumns     string        `yaml:"empty_columns" envconfig:"EMPTY_COLUMNS" default:"dataset" validate:"oneof=dataset chunk"`
	Malformed        string        `yaml:"malformed" envconfig:"MALFORMED" default:"skip" validate:"oneof=skip fail"`
	FailOnDrift      bool          `yaml:"fail_on_drift" envconfig:"FAIL_ON_DRIFT" default:"false"`
	SampleLimit      int           `yaml:"sample_limit" envconfig:"SAMPLE_LIMIT" default:"10" validate:"min=0"`
	ProgressInterval time.Duration `yaml:"progress_interval" envconfig:"PROGRESS_INTERVAL" default:"2s"`
	MaxParallelJobs  int           `yaml:"max_parallel_jobs" envconfig:"MAX_PARALLEL_JOBS" default:"1" validate:"min=1"`
}

// JobConfig describes one input file to clean
type JobConfig struct {
	Name        string   `yaml:"name"`
	InputPath   string   `yaml:"input_path" validate:"required"`
	OutputPath  string   `yaml:"output_path"`
	KeepColumns []string `yaml:"keep_columns" validate:"dive,required"`
	ChunkSize   int      `yaml:"chunk_size" validate:"min=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/loanprep.log"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus" validate:"oneof=prometheus none"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none" validate:"oneof=stdout none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0" validate:"gte=0,lte=1"`
	MetricsAddr    string  `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR" default:"."`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"data/reports"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load builds the configuration from, in increasing precedence: defaults,
// a .env file, LOANPREP_* environment variables, and the YAML file at path
// (or LOANPREP_CONFIG_FILE when path is empty). Command-line flags are
// applied by the callers on top of the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewConfigError("failed to load .env file", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if path == "" {
		path = cfg.ConfigFile
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFromFile overlays the YAML file at path onto cfg; keys absent from the
// file keep their current values.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperrors.NewNotFoundError(path, err)
		}
		return apperrors.NewConfigError("failed to read config file", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("failed to parse %s", path), err)
	}
	return nil
}

var validate = validator.New()

// Validate checks the configuration and normalizes the logging settings.
func (c *Config) Validate() error {
	// JSON is the only supported log format
	c.Logging.Format = "json"
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperrors.NewConfigError(
				fmt.Sprintf("invalid value %v for %s (rule %s)", fe.Value(), fe.Namespace(), fe.Tag()), err).
				WithContext("field", fe.Namespace())
		}
		return apperrors.NewConfigError("config validation failed", err)
	}

	seen := make(map[string]bool, len(c.Jobs))
	for i, job := range c.Jobs {
		name := job.DisplayName()
		if seen[name] {
			return apperrors.NewConfigError(fmt.Sprintf("duplicate job name %q at index %d", name, i), nil)
		}
		seen[name] = true
	}
	return nil
}

// DisplayName returns the job name, falling back to its input path.
func (j JobConfig) DisplayName() string {
	if j.Name != "" {
		return j.Name
	}
	return j.InputPath
}

// Destination returns where the cleaned file is written. An empty output
// path means the input is replaced in place.
func (j JobConfig) Destination() string {
	if j.OutputPath != "" {
		return j.OutputPath
	}
	return j.InputPath
}

// EffectiveChunkSize returns the job chunk size or the pipeline default.
func (j JobConfig) EffectiveChunkSize(p PipelineConfig) int {
	if j.ChunkSize > 0 {
		return j.ChunkSize
	}
	return p.ChunkSize
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			ChunkSize:        50_000,
			EmptyColumns:     EmptyColumnsDataset,
			Malformed:        MalformedSkip,
			SampleLimit:      10,
			ProgressInterval: 2 * time.Second,
			MaxParallelJobs:  1,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/loanprep.log",
		},
		Telemetry: TelemetryConfig{
			MetricExporter: "prometheus",
			TraceExporter:  "none",
			SampleRatio:    1.0,
		},
		Paths: PathsConfig{
			BaseDir:    ".",
			DataDir:    "data",
			ReportsDir: "data/reports",
			LogsDir:    "logs",
		},
	}
}
