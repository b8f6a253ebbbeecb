package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mvp-joe/depsolver/internal/config"
	"github.com/mvp-joe/depsolver/internal/depsolver"
	"github.com/mvp-joe/depsolver/internal/index"
	"github.com/mvp-joe/depsolver/internal/oracle"
	"github.com/mvp-joe/depsolver/internal/storage"
	"github.com/spf13/cobra"
)

// project bundles everything a command needs to analyze one source tree.
type project struct {
	dir    string
	cfg    *config.Config
	logger *slog.Logger
	index  *index.Index
	solver *depsolver.Solver
	writer *storage.ResultWriter // nil when persistence is off
}

// openProject loads configuration for the selected project directory and
// wires the index, oracle, solver and result writer.
func openProject(cmd *cobra.Command) (*project, error) {
	dir, cfg, err := loadProjectConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr())

	idx, err := index.New(cfg.IndexOptions(dir, logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open source root: %w", err)
	}
	o, err := oracle.NewWithBuiltins(cfg.ArchivePaths(dir)...)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("failed to load archives: %w", err)
	}

	p := &project{
		dir:    dir,
		cfg:    cfg,
		logger: logger,
		index:  idx,
		solver: depsolver.New(idx, o, cfg.SolverOptions(logger)),
	}
	if dbPath := cfg.DatabasePath(dir); dbPath != "" {
		if dbPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
				idx.Close()
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		w, err := storage.NewResultWriter(dbPath)
		if err != nil {
			idx.Close()
			return nil, err
		}
		p.writer = w
	}
	logger.Debug("project opened", "dir", dir, "source_root", cfg.SourceRoot(dir), "database", cfg.DatabasePath(dir))
	return p, nil
}

func (p *project) Close() {
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			p.logger.Warn("failed to close database", "error", err)
		}
	}
	p.index.Close()
}

// loadProjectConfig resolves the project directory and loads its config.
func loadProjectConfig() (string, *config.Config, error) {
	dir, err := resolveProjectDir()
	if err != nil {
		return "", nil, err
	}
	var loader config.Loader
	if cfgFile != "" {
		loader = config.NewFileLoader(dir, cfgFile)
	} else {
		loader = config.NewLoader(dir)
	}
	cfg, err := loader.Load()
	if err != nil {
		return "", nil, err
	}
	return dir, cfg, nil
}

func resolveProjectDir() (string, error) {
	if projectDir != "" {
		return filepath.Abs(projectDir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

// parseTargets reads "Type [method]" or "Type#method" arguments.
func parseTargets(args []string) (depsolver.Target, error) {
	t, err := depsolver.ParseTarget(args[0])
	if err != nil {
		return t, err
	}
	if len(args) > 1 {
		if t.Method != "" {
			return t, fmt.Errorf("method given twice: %q and %q", t.Method, args[1])
		}
		t.Method = args[1]
	}
	return t, nil
}
