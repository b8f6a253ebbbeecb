package config

import (
	"log/slog"
	"strings"

	"github.com/mvp-joe/depsolver/internal/depsolver"
	"github.com/mvp-joe/depsolver/internal/index"
)

// IndexOptions converts a Config to index options for the project at rootDir.
func (c *Config) IndexOptions(rootDir string, logger *slog.Logger) index.Options {
	return index.Options{
		Roots:     []string{c.SourceRoot(rootDir)},
		Ignore:    c.Paths.Ignore,
		CacheSize: c.Index.CacheSize,
		Logger:    logger,
	}
}

// SolverOptions converts a Config to solver options.
func (c *Config) SolverOptions(logger *slog.Logger) depsolver.Options {
	return depsolver.Options{
		Logger:        logger,
		MissingSource: depsolver.MissingSourcePolicy(strings.ToLower(c.Resolution.MissingSource)),
		GetterMarkers: c.Resolution.GetterMarkers,
		BasePackage:   c.BasePackage,
	}
}
