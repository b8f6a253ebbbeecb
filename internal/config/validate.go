package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyBasePath indicates a missing source root
	ErrEmptyBasePath = errors.New("empty base path")

	// ErrInvalidPattern indicates an ignore pattern that does not compile
	ErrInvalidPattern = errors.New("invalid ignore pattern")

	// ErrInvalidCacheSize indicates a non-positive index cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrInvalidPolicy indicates an unknown missing source policy
	ErrInvalidPolicy = errors.New("invalid missing source policy")

	// ErrEmptyMarker indicates a blank getter marker
	ErrEmptyMarker = errors.New("empty getter marker")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.BasePath) == "" {
		errs = append(errs, fmt.Errorf("%w: base_path is required", ErrEmptyBasePath))
	}

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if cfg.Index.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size must be positive, got %d", ErrInvalidCacheSize, cfg.Index.CacheSize))
	}

	if err := validateResolution(&cfg.Resolution); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error
	for _, p := range cfg.Ignore {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err))
		}
	}
	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateResolution(cfg *ResolutionConfig) error {
	var errs []error

	policy := strings.ToLower(cfg.MissingSource)
	if policy != MissingSourceLog && policy != MissingSourceAbort {
		errs = append(errs, fmt.Errorf("%w: must be 'log' or 'abort', got '%s'", ErrInvalidPolicy, cfg.MissingSource))
	}

	for _, m := range cfg.GetterMarkers {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, fmt.Errorf("%w: getter_markers entries must be non-empty", ErrEmptyMarker))
			break
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear
// formatting. Every input stays reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	verbs := make([]string, len(errs))
	args := make([]any, len(errs))
	for i, err := range errs {
		verbs[i] = "%w"
		args[i] = err
	}

	return fmt.Errorf("validation failed:\n  - "+strings.Join(verbs, "\n  - "), args...)
}
