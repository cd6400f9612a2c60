package fs

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"rufas/internal/config"
	"rufas/internal/rufas"
)

// MetadataDir holds a folder's collections and exports by default. It is
// never listed.
const MetadataDir = ".rufas"

// OSScanner reads folders on the real filesystem.
// Symlinks, devices, pipes and sockets are not listed.
type OSScanner struct {
	rules    IgnoreRules
	reserved []string
}

// NewOSScanner creates a scanner that skips entries matching rules and the
// patterns in the folder's own ignore file. MetadataDir and the reserved
// directories are skipped whatever the rules say. Relative reserved
// directories are taken relative to the scanned root.
func NewOSScanner(rules IgnoreRules, reserved ...string) *OSScanner {
	return &OSScanner{rules: rules, reserved: append([]string{MetadataDir}, reserved...)}
}

// Matcher compiles the scanner's rules together with root's ignore file.
func (s *OSScanner) Matcher(root string) (*IgnoreMatcher, error) {
	extra, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	m := NewIgnoreMatcher(s.rules, extra...)
	for _, dir := range s.reserved {
		if dir == "" {
			continue
		}
		if filepath.IsAbs(dir) {
			rel, err := filepath.Rel(root, dir)
			if err != nil {
				continue
			}
			dir = rel
		}
		m.Reserve(dir)
	}
	return m, nil
}

// ListTree walks root and returns the non-ignored entries.
func (s *OSScanner) ListTree(ctx context.Context, root string) ([]rufas.Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	m, err := s.Matcher(root)
	if err != nil {
		return nil, err
	}
	return s.walk(ctx, root, "", m)
}

func (s *OSScanner) walk(ctx context.Context, root, rel string, m *IgnoreMatcher) ([]rufas.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("reading directory %q: %w", rel, err)
	}

	entries := make([]rufas.Entry, 0, len(dirents))
	for _, d := range dirents {
		childRel := path.Join(rel, d.Name())
		if m.Match(childRel) {
			continue
		}
		switch {
		case d.IsDir():
			children, err := s.walk(ctx, root, childRel, m)
			if err != nil {
				return nil, err
			}
			entries = append(entries, rufas.Entry{Name: d.Name(), Type: rufas.EntryDirectory, Children: children})
		case d.Type().IsRegular():
			entries = append(entries, rufas.Entry{Name: d.Name(), Type: rufas.EntryFile})
		}
	}

	SortEntries(entries)
	return entries, nil
}

// SortEntries orders directories before files, then by case-insensitive name.
func SortEntries(entries []rufas.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Type != b.Type {
			return a.Type == rufas.EntryDirectory
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}

// ReadFile returns the content of a file under root.
func (s *OSScanner) ReadFile(ctx context.Context, root, rel string) ([]byte, error) {
	full, err := resolve(root, rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return data, nil
}

// Stat returns fresh metadata for a file under root.
func (s *OSScanner) Stat(ctx context.Context, root, rel string) (rufas.FileStat, error) {
	full, err := resolve(root, rel)
	if err != nil {
		return rufas.FileStat{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return rufas.FileStat{}, fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return rufas.FileStat{}, fmt.Errorf("not a file: %s", rel)
	}
	return rufas.FileStat{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// resolve joins a slash-separated relative path onto root, refusing paths
// that would leave it.
func resolve(root, rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", fmt.Errorf("invalid file path: %q", rel)
	}
	return filepath.Join(root, filepath.FromSlash(clean[1:])), nil
}

var _ rufas.Scanner = (*OSScanner)(nil)

// NewOSScannerFromConfig creates an OSScanner using the configured ignore
// rules. The storage and export directories are reserved.
func NewOSScannerFromConfig(cfg *config.Config) *OSScanner {
	return NewOSScanner(RulesFromConfig(cfg.Filesystem), cfg.Storage.Dir, cfg.Export.Dir)
}
