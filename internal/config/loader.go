package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader creates a loader that reads an explicit config file instead
// of searching .depsolver/.
func NewFileLoader(rootDir, configFile string) Loader {
	return &loader{
		rootDir:    rootDir,
		configFile: configFile,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (DEPSOLVER_*)
// 2. Config file (.depsolver/config.yml or .depsolver/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".depsolver"))
	}

	v.SetEnvPrefix("DEPSOLVER")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., DEPSOLVER_INDEX_CACHE_SIZE)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("base_package")
	v.BindEnv("base_path")
	v.BindEnv("archives")
	v.BindEnv("paths.ignore")
	v.BindEnv("index.cache_size")
	v.BindEnv("resolution.missing_source")
	v.BindEnv("resolution.getter_markers")
	v.BindEnv("storage.database")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("base_package", defaults.BasePackage)
	v.SetDefault("base_path", defaults.BasePath)
	v.SetDefault("archives", defaults.Archives)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)
	v.SetDefault("index.cache_size", defaults.Index.CacheSize)
	v.SetDefault("resolution.missing_source", defaults.Resolution.MissingSource)
	v.SetDefault("resolution.getter_markers", defaults.Resolution.GetterMarkers)
	v.SetDefault("storage.database", defaults.Storage.Database)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
