package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/depsolver/internal/depsolver"
	"github.com/mvp-joe/depsolver/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() reads .depsolver/config.yml and .depsolver/config.yaml
// - Load() merges a partial config file with defaults
// - Environment variables override config file values and defaults
// - Load() returns error for malformed YAML and invalid values
// - NewFileLoader() reads an explicit file
// - Validate() rejects empty base path, bad globs, bad cache size,
//   unknown policy and blank markers, joining every error
// - Paths resolve against the project directory
// - Options conversion carries base package, policy, markers and index
//   settings

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ".depsolver")
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, name), []byte(content), 0644))
	return dir
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, filepath.Join("src", "main", "java"), cfg.BasePath)
	assert.Empty(t, cfg.BasePackage)
	assert.Empty(t, cfg.Archives)
	assert.NotEmpty(t, cfg.Paths.Ignore)
	assert.Equal(t, index.DefaultCacheSize, cfg.Index.CacheSize)
	assert.Equal(t, MissingSourceLog, cfg.Resolution.MissingSource)
	assert.Equal(t, []string{"Data", "Getter"}, cfg.Resolution.GetterMarkers)
	assert.Empty(t, cfg.Storage.Database)

	assert.NoError(t, Validate(cfg))
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()

	require.NoError(t, err)
	expected := Default()
	assert.Equal(t, expected.BasePath, cfg.BasePath)
	assert.Equal(t, expected.Paths.Ignore, cfg.Paths.Ignore)
	assert.Equal(t, expected.Index.CacheSize, cfg.Index.CacheSize)
	assert.Equal(t, expected.Resolution, cfg.Resolution)
	assert.Empty(t, cfg.Archives)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config.yml", `
base_package: com.shop
base_path: app/src
archives:
  - libs/spring.yml
paths:
  ignore:
    - "**/generated/**"
index:
  cache_size: 50
resolution:
  missing_source: abort
  getter_markers: ["Data", "Value"]
storage:
  database: .depsolver/results.db
`)

	cfg, err := NewLoader(dir).Load()

	require.NoError(t, err)
	assert.Equal(t, "com.shop", cfg.BasePackage)
	assert.Equal(t, "app/src", cfg.BasePath)
	assert.Equal(t, []string{"libs/spring.yml"}, cfg.Archives)
	assert.Equal(t, []string{"**/generated/**"}, cfg.Paths.Ignore)
	assert.Equal(t, 50, cfg.Index.CacheSize)
	assert.Equal(t, MissingSourceAbort, cfg.Resolution.MissingSource)
	assert.Equal(t, []string{"Data", "Value"}, cfg.Resolution.GetterMarkers)
	assert.Equal(t, ".depsolver/results.db", cfg.Storage.Database)
}

func TestLoadConfig_LoadsFromConfigYaml(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config.yaml", "base_package: com.yaml\n")

	cfg, err := NewLoader(dir).Load()

	require.NoError(t, err)
	assert.Equal(t, "com.yaml", cfg.BasePackage)
}

func TestLoadConfig_MergesConfigWithDefaults(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config.yml", `
resolution:
  missing_source: abort
`)

	cfg, err := NewLoader(dir).Load()

	require.NoError(t, err)
	assert.Equal(t, MissingSourceAbort, cfg.Resolution.MissingSource)
	assert.Equal(t, []string{"Data", "Getter"}, cfg.Resolution.GetterMarkers)
	assert.Equal(t, index.DefaultCacheSize, cfg.Index.CacheSize)
	assert.Equal(t, Default().BasePath, cfg.BasePath)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	dir := writeConfig(t, "config.yml", `
base_package: com.file
index:
  cache_size: 10
storage:
  database: file.db
`)
	t.Setenv("DEPSOLVER_BASE_PACKAGE", "com.env")
	t.Setenv("DEPSOLVER_INDEX_CACHE_SIZE", "99")

	cfg, err := NewLoader(dir).Load()

	require.NoError(t, err)
	assert.Equal(t, "com.env", cfg.BasePackage)
	assert.Equal(t, 99, cfg.Index.CacheSize)
	assert.Equal(t, "file.db", cfg.Storage.Database)
}

func TestLoadConfig_EnvironmentVariablesOverrideDefaults(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	t.Setenv("DEPSOLVER_RESOLUTION_MISSING_SOURCE", "abort")
	t.Setenv("DEPSOLVER_STORAGE_DATABASE", "/tmp/env.db")

	cfg, err := NewLoader(t.TempDir()).Load()

	require.NoError(t, err)
	assert.Equal(t, MissingSourceAbort, cfg.Resolution.MissingSource)
	assert.Equal(t, "/tmp/env.db", cfg.Storage.Database)
	assert.Equal(t, index.DefaultCacheSize, cfg.Index.CacheSize)
}

func TestLoadConfig_ReturnsErrorForMalformedYAML(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config.yml", "resolution:\n  missing_source: [unclosed\n")

	_, err := NewLoader(dir).Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config.yml", `
resolution:
  missing_source: explode
`)

	_, err := NewLoader(dir).Load()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestNewFileLoader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("base_package: com.custom\n"), 0644))

	cfg, err := NewFileLoader(t.TempDir(), path).Load()

	require.NoError(t, err)
	assert.Equal(t, "com.custom", cfg.BasePackage)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"empty base path", func(c *Config) { c.BasePath = " " }, ErrEmptyBasePath},
		{"bad glob", func(c *Config) { c.Paths.Ignore = []string{"[unclosed"} }, ErrInvalidPattern},
		{"zero cache", func(c *Config) { c.Index.CacheSize = 0 }, ErrInvalidCacheSize},
		{"unknown policy", func(c *Config) { c.Resolution.MissingSource = "ignore" }, ErrInvalidPolicy},
		{"blank marker", func(c *Config) { c.Resolution.GetterMarkers = []string{"Data", ""} }, ErrEmptyMarker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidate_PolicyIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Resolution.MissingSource = "ABORT"
	assert.NoError(t, Validate(cfg))
	assert.Equal(t, depsolver.MissingSourceAbort, cfg.SolverOptions(nil).MissingSource)
}

func TestValidate_ReturnsMultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.BasePath = ""
	cfg.Index.CacheSize = -1
	cfg.Resolution.MissingSource = "nope"

	err := Validate(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.True(t, errors.Is(err, ErrEmptyBasePath))
	assert.True(t, errors.Is(err, ErrInvalidCacheSize))
	assert.True(t, errors.Is(err, ErrInvalidPolicy))
}

func TestConfig_Paths(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Archives = []string{"libs/a.yml", "/abs/b.yml"}
	cfg.Storage.Database = "out/results.db"

	assert.Equal(t, filepath.Join("/proj", "src", "main", "java"), cfg.SourceRoot("/proj"))
	assert.Equal(t, []string{filepath.Join("/proj", "libs/a.yml"), "/abs/b.yml"}, cfg.ArchivePaths("/proj"))
	assert.Equal(t, filepath.Join("/proj", "out/results.db"), cfg.DatabasePath("/proj"))

	cfg.Storage.Database = ""
	assert.Empty(t, cfg.DatabasePath("/proj"))
	cfg.BasePath = "/srv/src"
	assert.Equal(t, "/srv/src", cfg.SourceRoot("/proj"))
}

func TestConfig_Options(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.BasePackage = "com.shop"
	cfg.Resolution.GetterMarkers = []string{"Value"}

	opts := cfg.SolverOptions(nil)
	assert.Equal(t, depsolver.MissingSourceLog, opts.MissingSource)
	assert.Equal(t, []string{"Value"}, opts.GetterMarkers)
	assert.Equal(t, "com.shop", opts.BasePackage)

	idx := cfg.IndexOptions("/proj", nil)
	assert.Equal(t, []string{filepath.Join("/proj", "src", "main", "java")}, idx.Roots)
	assert.Equal(t, cfg.Paths.Ignore, idx.Ignore)
	assert.Equal(t, index.DefaultCacheSize, idx.CacheSize)
}
