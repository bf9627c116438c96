package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"closetpicks/internal/config"
	"closetpicks/internal/dataset"
	"closetpicks/internal/store"
	"closetpicks/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func (e *cliTestEnv) seed(t *testing.T, ds *dataset.Dataset) *store.Store {
	t.Helper()
	return testsupport.SeedDataset(t, e.cfg, ds)
}

func (e *cliTestEnv) document(t *testing.T, name string) string {
	t.Helper()
	return string(testsupport.ReadFile(t, filepath.Join(e.cfg.Paths.DataDir, name)))
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
transcripts_dir = %q
state_dir = %q

[directives]
path = %q

[tmdb]
api_key = %q
base_url = %q
requests_per_second = %.1f

[llm]
api_key = %q
base_url = %q

[metrics]
textfile = %q

[logging]
level = "error"
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.TranscriptsDir,
		cfg.Paths.StateDir,
		cfg.Directives.Path,
		cfg.TMDB.APIKey,
		cfg.TMDB.BaseURL,
		cfg.TMDB.RequestsPerSecond,
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.Metrics.Textfile,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
