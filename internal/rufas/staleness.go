package rufas

import "context"

// Changes describes how a bundle's membership and member files differ from
// its last export snapshot.
type Changes struct {
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// Empty reports whether nothing changed since the last export.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Modified) == 0
}

// BundleChanges diffs the bundle's current FileIDs against its last export
// snapshot. Modified lists members present in both whose lastModified is
// later than the snapshot timestamp. A bundle with no snapshot reports every
// member as added.
func BundleChanges(b Bundle, files []FileRecord) Changes {
	changes := Changes{Added: []string{}, Removed: []string{}, Modified: []string{}}
	if b.LastExport == nil {
		changes.Added = append(changes.Added, dedupe(b.FileIDs)...)
		return changes
	}

	modified := make(map[string]int64, len(files))
	for _, f := range files {
		modified[f.ID] = f.LastModified
	}

	exported := idSet(b.LastExport.FileIDs)
	current := idSet(b.FileIDs)

	for _, id := range dedupe(b.FileIDs) {
		if !exported[id] {
			changes.Added = append(changes.Added, id)
			continue
		}
		if ts, ok := modified[id]; ok && ts > b.LastExport.Timestamp {
			changes.Modified = append(changes.Modified, id)
		}
	}
	for _, id := range dedupe(b.LastExport.FileIDs) {
		if !current[id] {
			changes.Removed = append(changes.Removed, id)
		}
	}
	return changes
}

// ComputeStaleness reports whether the bundle's last export still reflects
// its members. Master bundles are always fresh.
func ComputeStaleness(b Bundle, files []FileRecord) Freshness {
	if b.IsMaster {
		return Fresh
	}
	if BundleChanges(b, files).Empty() {
		return Fresh
	}
	return Stale
}

// BundleStatus pairs a bundle with its computed freshness.
type BundleStatus struct {
	Bundle    Bundle
	Freshness Freshness
	Changes   Changes
}

// BundleStatuses computes the freshness of every bundle, in stored order.
func (e *Engine) BundleStatuses(ctx context.Context) ([]BundleStatus, error) {
	files, err := e.Files(ctx)
	if err != nil {
		return nil, err
	}
	bundles, err := e.Bundles(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]BundleStatus, 0, len(bundles))
	for _, b := range bundles {
		statuses = append(statuses, BundleStatus{
			Bundle:    b,
			Freshness: ComputeStaleness(b, files),
			Changes:   BundleChanges(b, files),
		})
	}
	return statuses, nil
}
