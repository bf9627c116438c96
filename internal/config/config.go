package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir        string `toml:"data_dir"`
	LogDir         string `toml:"log_dir"`
	TranscriptsDir string `toml:"transcripts_dir"`
	StateDir       string `toml:"state_dir"`
}

// Directives points at an optional external directive table.
type Directives struct {
	Path string `toml:"path"`
}

// Matching contains film reference resolution thresholds.
type Matching struct {
	FuzzyThresholdLoose  int `toml:"fuzzy_threshold_loose"`
	FuzzyThresholdStrict int `toml:"fuzzy_threshold_strict"`
	YearTolerance        int `toml:"year_tolerance"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Language          string  `toml:"language"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// LLM contains connection settings for the excerpt extraction model.
type LLM struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Model             string  `toml:"model"`
	Referer           string  `toml:"referer"`
	Title             string  `toml:"title"`
	RequestsPerMinute float64 `toml:"requests_per_minute"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Enrich contains worker pool and extraction limits.
type Enrich struct {
	Workers               int `toml:"workers"`
	BatchSize             int `toml:"batch_size"`
	MaxSegments           int `toml:"max_segments"`
	MaxQuoteChars         int `toml:"max_quote_chars"`
	MetadataYearTolerance int `toml:"metadata_year_tolerance"`
}

// Metrics controls the node-exporter textfile written after each run.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for closetpicks.
//
// Configuration sections by subsystem:
//   - Paths: dataset, transcript, log, and state directories
//   - Directives: optional external merge/correction table
//   - Matching: fuzzy thresholds and year tolerance
//   - TMDB: film metadata enrichment
//   - LLM: excerpt extraction
//   - Enrich: worker pool sizing and extraction limits
//   - Metrics: textfile collector output
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Directives Directives `toml:"directives"`
	Matching   Matching   `toml:"matching"`
	TMDB       TMDB       `toml:"tmdb"`
	LLM        LLM        `toml:"llm"`
	Enrich     Enrich     `toml:"enrich"`
	Metrics    Metrics    `toml:"metrics"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into. The
// transcripts directory is read-only input and is left alone.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Metrics.Textfile != "" {
		if err := os.MkdirAll(filepath.Dir(c.Metrics.Textfile), 0o755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	return nil
}

// LedgerPath is the SQLite run history database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// MetadataEnabled reports whether TMDB credentials are present.
func (c *Config) MetadataEnabled() bool {
	return strings.TrimSpace(c.TMDB.APIKey) != ""
}

// ExtractionEnabled reports whether LLM credentials are present.
func (c *Config) ExtractionEnabled() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
