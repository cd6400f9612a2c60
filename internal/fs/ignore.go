package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"rufas/internal/config"
)

// IgnoreFileName is read from the root of an opened folder on every scan.
// Each non-comment line is a glob pattern.
const IgnoreFileName = ".rufasignore"

// IgnoreRules lists the names skipped while scanning.
// Names, Prefixes and Suffixes apply to the entry's basename.
// Patterns are globs: without '/' they match the basename, with '/' the
// slash-separated path relative to the root.
type IgnoreRules struct {
	Names    []string
	Prefixes []string
	Suffixes []string
	Patterns []string
}

// RulesFromConfig converts the filesystem section of the config.
func RulesFromConfig(cfg config.FilesystemConfig) IgnoreRules {
	return IgnoreRules{
		Names:    cfg.IgnoreNames,
		Prefixes: cfg.IgnorePrefixes,
		Suffixes: cfg.IgnoreSuffixes,
		Patterns: cfg.Ignore,
	}
}

// ignorePattern is a parsed glob pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against basename only
}

// IgnoreMatcher checks relative paths against IgnoreRules.
type IgnoreMatcher struct {
	names    map[string]bool
	prefixes []string
	suffixes []string
	patterns []ignorePattern
	reserved []string
}

// NewIgnoreMatcher compiles rules plus any extra glob patterns.
// Blank entries and patterns starting with '#' are skipped.
func NewIgnoreMatcher(rules IgnoreRules, extraPatterns ...string) *IgnoreMatcher {
	m := &IgnoreMatcher{names: make(map[string]bool, len(rules.Names))}
	for _, n := range rules.Names {
		if n = strings.TrimSpace(n); n != "" {
			m.names[n] = true
		}
	}
	for _, p := range rules.Prefixes {
		if p = strings.TrimSpace(p); p != "" {
			m.prefixes = append(m.prefixes, p)
		}
	}
	for _, s := range rules.Suffixes {
		if s = strings.TrimSpace(s); s != "" {
			m.suffixes = append(m.suffixes, s)
		}
	}

	raw := append(append([]string{}, rules.Patterns...), extraPatterns...)
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" || strings.HasPrefix(r, "#") {
			continue
		}
		m.patterns = append(m.patterns, ignorePattern{
			pattern:   strings.TrimSuffix(r, "/"),
			matchPath: strings.Contains(strings.TrimSuffix(r, "/"), "/"),
		})
	}
	return m
}

// Reserve always ignores the given slash-separated relative paths and
// everything below them, regardless of the rules.
func (m *IgnoreMatcher) Reserve(paths ...string) {
	for _, p := range paths {
		p = path.Clean(filepath.ToSlash(p))
		if p == "." || p == "/" || p == ".." || strings.HasPrefix(p, "../") || strings.HasPrefix(p, "/") {
			continue
		}
		m.reserved = append(m.reserved, p)
	}
}

// Match reports whether the given relative path should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	normalized := filepath.ToSlash(relativePath)
	basename := filepath.Base(relativePath)

	for _, r := range m.reserved {
		if normalized == r || strings.HasPrefix(normalized, r+"/") {
			return true
		}
	}

	if m.names[basename] {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(basename, p) {
			return true
		}
	}
	for _, s := range m.suffixes {
		if strings.HasSuffix(basename, s) {
			return true
		}
	}

	for _, p := range m.patterns {
		var matched bool
		var err error
		if p.matchPath {
			matched, err = filepath.Match(p.pattern, normalized)
		} else {
			matched, err = filepath.Match(p.pattern, basename)
		}
		if err != nil {
			// Bad pattern: skip rather than crash.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
