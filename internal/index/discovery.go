package index

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Discovery finds Java sources below one source root, honoring ignore globs.
type Discovery struct {
	rootDir        string
	ignorePatterns []compiledPattern
}

// NewDiscovery creates a discovery for rootDir. Patterns are matched against
// slash-separated paths relative to the root.
func NewDiscovery(rootDir string, ignorePatterns []string) (*Discovery, error) {
	d := &Discovery{rootDir: rootDir}
	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		d.ignorePatterns = append(d.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}
	return d, nil
}

// Root returns the source root.
func (d *Discovery) Root() string {
	return d.rootDir
}

// DiscoverFiles walks the root and returns every non-ignored .java file.
func (d *Discovery) DiscoverFiles() ([]string, error) {
	files := []string{}
	err := filepath.Walk(d.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && d.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(relPath, ".java") || d.shouldIgnore(relPath) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// PackageFiles lists the non-ignored .java files directly inside the
// directory of pkg. A missing directory yields no files.
func (d *Discovery) PackageFiles(pkg string) ([]string, error) {
	rel := strings.ReplaceAll(pkg, ".", "/")
	dir := filepath.Join(d.rootDir, filepath.FromSlash(rel))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".java") {
			continue
		}
		relPath := e.Name()
		if rel != "" {
			relPath = rel + "/" + e.Name()
		}
		if d.shouldIgnore(relPath) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// Ignored reports whether an absolute or root-relative path is excluded.
func (d *Discovery) Ignored(path string) bool {
	relPath := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(d.rootDir, path)
		if err != nil || strings.HasPrefix(r, "..") {
			return true
		}
		relPath = r
	}
	return d.shouldIgnore(filepath.ToSlash(relPath))
}

// shouldIgnore checks if a path matches any ignore pattern.
func (d *Discovery) shouldIgnore(relPath string) bool {
	if d.matchesAnyPattern(relPath) {
		return true
	}

	// A directory such as "generated" should match the pattern "generated/**".
	return d.matchesAnyPattern(relPath + "/**")
}

// matchesAnyPattern checks if a path matches any ignore pattern.
func (d *Discovery) matchesAnyPattern(path string) bool {
	for _, cp := range d.ignorePatterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Files in the root also match "**/"-prefixed patterns.
	if !strings.Contains(path, "/") {
		for _, cp := range d.ignorePatterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if g, err := glob.Compile(simplified, '/'); err == nil && g.Match(path) {
					return true
				}
			}
		}
	}
	return false
}
