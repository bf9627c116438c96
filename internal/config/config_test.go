package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"closetpicks/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	t.Setenv("OPENROUTER_API_KEY", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "closetpicks", "data")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.LedgerPath() != filepath.Join(tempHome, ".local", "state", "closetpicks", "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if !cfg.MetadataEnabled() {
		t.Fatal("expected metadata enrichment enabled with key")
	}
	if cfg.ExtractionEnabled() {
		t.Fatal("expected extraction disabled without LLM key")
	}
	if cfg.Matching.FuzzyThresholdLoose != 75 || cfg.Matching.FuzzyThresholdStrict != 85 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Matching)
	}
	if cfg.Enrich.Workers != 4 || cfg.Enrich.BatchSize != 20 || cfg.Enrich.MaxSegments != 1000 {
		t.Fatalf("unexpected enrich defaults: %+v", cfg.Enrich)
	}
	if cfg.Directives.Path != "" {
		t.Fatalf("expected built-in directives by default, got %q", cfg.Directives.Path)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "closetpicks.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Directives struct {
			Path string `toml:"path"`
		} `toml:"directives"`
		Matching struct {
			FuzzyThresholdLoose int `toml:"fuzzy_threshold_loose"`
		} `toml:"matching"`
		Enrich struct {
			Workers int `toml:"workers"`
		} `toml:"enrich"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Directives.Path = filepath.Join(tempDir, "directives.yaml")
	custom.Matching.FuzzyThresholdLoose = 70
	custom.Enrich.Workers = 8
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.Matching.FuzzyThresholdLoose != 70 {
		t.Fatalf("expected loose threshold 70, got %d", cfg.Matching.FuzzyThresholdLoose)
	}
	if cfg.Matching.FuzzyThresholdStrict != 85 {
		t.Fatalf("expected strict threshold default, got %d", cfg.Matching.FuzzyThresholdStrict)
	}
	if cfg.Enrich.Workers != 8 {
		t.Fatalf("expected 8 workers, got %d", cfg.Enrich.Workers)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", cfg.Logging.Format)
	}
}

func TestConfigFileKeyWinsOverEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "closetpicks.toml")
	if err := os.WriteFile(configPath, []byte("[tmdb]\napi_key = \"file-tmdb\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TMDB_API_KEY", "env-tmdb")
	t.Setenv("OPENROUTER_API_KEY", "env-llm")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDB.APIKey != "file-tmdb" {
		t.Errorf("expected TMDB key from file, got %q", cfg.TMDB.APIKey)
	}
	if cfg.LLM.APIKey != "env-llm" {
		t.Errorf("expected LLM key from env fallback, got %q", cfg.LLM.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "TMDB_API_KEY") {
		t.Fatalf("sample config missing TMDB key hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "closetpicks") {
		t.Fatalf("expected data dir to contain closetpicks, got %q", cfg.Paths.DataDir)
	}
	if cfg.Enrich.BatchSize != config.Default().Enrich.BatchSize {
		t.Fatalf("sample batch size drifted from defaults: %d", cfg.Enrich.BatchSize)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"loose threshold range", func(c *config.Config) { c.Matching.FuzzyThresholdLoose = 0 }, "matching.fuzzy_threshold_loose"},
		{"strict below loose", func(c *config.Config) { c.Matching.FuzzyThresholdStrict = 60 }, "matching.fuzzy_threshold_strict"},
		{"negative year tolerance", func(c *config.Config) { c.Matching.YearTolerance = -1 }, "matching.year_tolerance"},
		{"workers", func(c *config.Config) { c.Enrich.Workers = 0 }, "enrich.workers"},
		{"rate", func(c *config.Config) { c.TMDB.RequestsPerSecond = -1 }, "tmdb.requests_per_second"},
		{"directive extension", func(c *config.Config) { c.Directives.Path = "/tmp/directives.txt" }, "directives.path"},
		{"log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Metrics.Textfile = filepath.Join(base, "metrics", "closetpicks.prom")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.StateDir, filepath.Dir(cfg.Metrics.Textfile)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
}
