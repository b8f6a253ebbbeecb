// Package config loads depsolver settings from .depsolver/config.yml with
// DEPSOLVER_* environment overrides.
//
// Priority (highest to lowest):
//  1. Environment variables (DEPSOLVER_RESOLUTION_MISSING_SOURCE, ...)
//  2. Project config (.depsolver/config.yml or .depsolver/config.yaml)
//  3. Built-in defaults
package config

import (
	"path/filepath"

	"github.com/mvp-joe/depsolver/internal/index"
)

// Missing source policies.
const (
	MissingSourceLog   = "log"
	MissingSourceAbort = "abort"
)

// Config represents the complete depsolver configuration.
type Config struct {
	BasePackage string           `yaml:"base_package" mapstructure:"base_package"` // package prefix of the analyzed application
	BasePath    string           `yaml:"base_path" mapstructure:"base_path"`       // source root, relative to the project directory
	Archives    []string         `yaml:"archives" mapstructure:"archives"`         // type descriptor manifests for library types
	Paths       PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Index       IndexConfig      `yaml:"index" mapstructure:"index"`
	Resolution  ResolutionConfig `yaml:"resolution" mapstructure:"resolution"`
	Storage     StorageConfig    `yaml:"storage" mapstructure:"storage"`
}

// PathsConfig defines which sources are excluded from lookup.
type PathsConfig struct {
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns relative to the source root
}

// IndexConfig tunes the declaration index.
type IndexConfig struct {
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"` // memoized compilation units
}

// ResolutionConfig controls how unresolved references are treated.
type ResolutionConfig struct {
	MissingSource string   `yaml:"missing_source" mapstructure:"missing_source"` // "log" or "abort"
	GetterMarkers []string `yaml:"getter_markers" mapstructure:"getter_markers"` // annotations that generate getters
}

// StorageConfig defines where results are persisted.
type StorageConfig struct {
	Database string `yaml:"database" mapstructure:"database"` // SQLite path; empty disables persistence
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		BasePath: filepath.Join("src", "main", "java"),
		Paths: PathsConfig{
			Ignore: []string{
				"**/package-info.java",
				"**/module-info.java",
			},
		},
		Index: IndexConfig{
			CacheSize: index.DefaultCacheSize,
		},
		Resolution: ResolutionConfig{
			MissingSource: MissingSourceLog,
			GetterMarkers: []string{"Data", "Getter"},
		},
	}
}

// SourceRoot returns the absolute source root for a project directory.
func (c *Config) SourceRoot(rootDir string) string {
	if filepath.IsAbs(c.BasePath) {
		return c.BasePath
	}
	return filepath.Join(rootDir, c.BasePath)
}

// ArchivePaths returns the archive manifests resolved against rootDir.
func (c *Config) ArchivePaths(rootDir string) []string {
	out := make([]string, 0, len(c.Archives))
	for _, a := range c.Archives {
		if !filepath.IsAbs(a) {
			a = filepath.Join(rootDir, a)
		}
		out = append(out, a)
	}
	return out
}

// DatabasePath returns the SQLite path resolved against rootDir, or "" when
// persistence is off.
func (c *Config) DatabasePath(rootDir string) string {
	db := c.Storage.Database
	if db == "" || db == ":memory:" || filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(rootDir, db)
}
