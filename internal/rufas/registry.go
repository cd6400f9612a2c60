package rufas

import (
	"context"
	"path"
)

// Registry mirrors a directory tree into flat, path-keyed file records.
type Registry struct {
	scanner Scanner
	root    string
	logger  Logger
}

// NewRegistry creates a Registry for the folder at root.
func NewRegistry(scanner Scanner, root string, logger Logger) *Registry {
	return &Registry{scanner: scanner, root: root, logger: logger}
}

// Root returns the folder this registry mirrors.
func (r *Registry) Root() string {
	return r.root
}

// Scan lists the tree under the root and produces one record per file, in
// depth-first tree order, with empty relationship sets. Any enumeration or
// stat failure aborts the scan with a ScanError rather than returning a
// truncated tree.
func (r *Registry) Scan(ctx context.Context) ([]FileRecord, []Entry, error) {
	entries, err := r.scanner.ListTree(ctx, r.root)
	if err != nil {
		return nil, nil, &ScanError{Path: r.root, Err: err}
	}

	paths := FlattenEntries(entries)
	records := make([]FileRecord, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, &ScanError{Path: r.root, Err: err}
		}
		stat, err := r.scanner.Stat(ctx, r.root, p)
		if err != nil {
			return nil, nil, &ScanError{Path: p, Err: err}
		}
		records = append(records, NewFileRecord(p, Millis(stat.ModTime)))
	}

	r.logger.Debug("scan complete", "root", r.root, "files", len(records))
	return records, entries, nil
}

// FlattenEntries returns the slash-separated paths of every file in the tree,
// depth-first. Directories themselves are not included.
func FlattenEntries(entries []Entry) []string {
	var paths []string
	var walk func(entries []Entry, parent string)
	walk = func(entries []Entry, parent string) {
		for _, e := range entries {
			full := e.Name
			if parent != "" {
				full = path.Join(parent, e.Name)
			}
			if e.Type == EntryFile {
				paths = append(paths, full)
				continue
			}
			walk(e.Children, full)
		}
	}
	walk(entries, "")
	return paths
}

// ReconcileResult is the outcome of merging a scan with the stored files.
type ReconcileResult struct {
	// Files holds one record per scanned path, in scan order.
	Files []FileRecord
	// Added lists paths that had no stored record.
	Added []string
	// Modified lists paths whose lastModified changed since the stored record.
	Modified []string
	// Orphaned lists stored paths that the scan no longer returned.
	Orphaned []string
}

// Changed reports whether the merged files differ from the stored ones.
func (r ReconcileResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Modified) > 0 || len(r.Orphaned) > 0
}

// Reconcile merges scanned records with stored ones. Relationship sets are
// carried over from the stored record with the same id; stored records whose
// timestamp is unchanged are copied through as-is. Stored paths that were not
// scanned are dropped and reported as orphaned. Path comparison is exact, so a
// rename shows up as one orphan plus one addition.
func Reconcile(scanned, stored []FileRecord) ReconcileResult {
	byID := make(map[string]FileRecord, len(stored))
	for _, f := range stored {
		byID[f.ID] = f
	}

	result := ReconcileResult{Files: make([]FileRecord, 0, len(scanned))}
	seen := make(map[string]bool, len(scanned))
	for _, s := range scanned {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true

		existing, ok := byID[s.ID]
		switch {
		case !ok:
			result.Files = append(result.Files, NewFileRecord(s.ID, s.LastModified))
			result.Added = append(result.Added, s.ID)
		case existing.LastModified == s.LastModified:
			result.Files = append(result.Files, normalizeFile(existing))
		default:
			merged := normalizeFile(existing)
			merged.LastModified = s.LastModified
			result.Files = append(result.Files, merged)
			result.Modified = append(result.Modified, s.ID)
		}
	}

	for _, f := range stored {
		if !seen[f.ID] {
			result.Orphaned = append(result.Orphaned, f.ID)
		}
	}
	return result
}

// normalizeFile returns a copy of f with non-nil, deduplicated relationship sets
// and Path kept equal to ID.
func normalizeFile(f FileRecord) FileRecord {
	return FileRecord{
		ID:           f.ID,
		Path:         f.ID,
		TagIDs:       dedupe(f.TagIDs),
		BundleIDs:    dedupe(f.BundleIDs),
		LastModified: f.LastModified,
	}
}
