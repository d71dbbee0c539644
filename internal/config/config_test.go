package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "json", cfg.Store.Driver)
	assert.Equal(t, "data/digests.json", cfg.Store.JSONPath)
	assert.Equal(t, 25, cfg.Pipeline.MaxLinksPerRun)
	assert.Equal(t, "eng", cfg.Pipeline.ExpectedLanguage)
	assert.Equal(t, ScoringWeighted, cfg.Pipeline.ScoringMode)
	assert.True(t, cfg.Pipeline.WriteArtifacts)
	assert.Equal(t, "output", cfg.Pipeline.OutputDir)
	assert.Equal(t, 20, cfg.Fetch.TimeoutSecs)
	assert.InDelta(t, 2.0, cfg.Fetch.RatePerHost, 0.001)
	assert.Equal(t, "jina", cfg.Render.Backend)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "local", cfg.PDF.Extractor)
	assert.Equal(t, "pdftotext", cfg.PDF.PdfToTextPath)
	assert.False(t, cfg.Diffbot.Enabled)
	assert.Equal(t, "https://api.diffbot.com/v3/article", cfg.Diffbot.Endpoint)
	assert.Equal(t, "data/link-queue.json", cfg.Queue.Path)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: digests.db
log:
  level: debug
  format: console
pipeline:
  max_links_per_run: 5
  scoring_mode: bounded
  order: [basic-http, readability]
diffbot:
  enabled: true
  token: abc
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Pipeline.MaxLinksPerRun)
	assert.Equal(t, ScoringBounded, cfg.Pipeline.ScoringMode)
	assert.Equal(t, []string{"basic-http", "readability"}, cfg.Pipeline.Order)
	assert.True(t, cfg.Diffbot.Enabled)
	assert.Equal(t, "abc", cfg.Diffbot.Token)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9000\n"), 0o644))
	t.Setenv("DIGEST_SERVER_PORT", "9100")
	t.Setenv("DIGEST_PIPELINE_EXPECTED_LANGUAGE", "deu")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "deu", cfg.Pipeline.ExpectedLanguage)
}

func TestLoadRejectsBadDriver(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DIGEST_STORE_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store.driver "mongo"`)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Store:    StoreConfig{Driver: "json"},
			Pipeline: PipelineConfig{ScoringMode: ScoringWeighted, MaxLinksPerRun: 25},
		}
	}
	require.NoError(t, base().Validate())

	c := base()
	c.Store.Driver = "postgres"
	assert.Error(t, c.Validate())
	c.Store.DatabaseURL = "postgres://localhost/digest"
	assert.NoError(t, c.Validate())

	c = base()
	c.Pipeline.ScoringMode = "fancy"
	assert.Error(t, c.Validate())

	c = base()
	c.Pipeline.MaxLinksPerRun = 0
	assert.Error(t, c.Validate())
}

func TestTimeouts(t *testing.T) {
	assert.Equal(t, "20s", FetchConfig{TimeoutSecs: 20}.Timeout().String())
	assert.Equal(t, "30s", RenderConfig{TimeoutSecs: 30}.Timeout().String())
}

func TestInitLoggerConsole(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestLoadProvidersFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	content := `
order: [render, basic-http, diffbot]
render:
  enabled: false
diffbot:
  enabled: true
  token: tok
trafilatura:
  enabled: true
  endpoint: http://localhost:8001/extract
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pf, err := LoadProvidersFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"render", "basic-http", "diffbot"}, pf.Order)
	assert.Equal(t, map[string]bool{"render": true}, pf.Disabled())

	cfg := &Config{}
	pf.Apply(cfg)
	assert.Equal(t, pf.Order, cfg.Pipeline.Order)
	assert.True(t, cfg.Diffbot.Enabled)
	assert.Equal(t, "tok", cfg.Diffbot.Token)
	assert.True(t, cfg.Trafilatura.Enabled)
	assert.Equal(t, "http://localhost:8001/extract", cfg.Trafilatura.Endpoint)
}

func TestLoadProvidersFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"readability": {"enabled": false}}`), 0o644))

	pf, err := LoadProvidersFile(path)
	require.NoError(t, err)
	assert.Empty(t, pf.Order)
	assert.True(t, pf.Disabled()["readability"])
}

func TestLoadProvidersFile_EmptyPath(t *testing.T) {
	pf, err := LoadProvidersFile("")
	require.NoError(t, err)
	assert.Empty(t, pf.Disabled())
}

func TestLoadProvidersFile_Errors(t *testing.T) {
	_, err := LoadProvidersFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("order: [unterminated"), 0o644))
	_, err = LoadProvidersFile(path)
	assert.Error(t, err)
}
