package rufas

import (
	"bytes"
	"context"
)

// SyncResult summarizes one Synchronize pass.
type SyncResult struct {
	Reconcile ReconcileResult
	// Written lists the collections that were rewritten.
	Written []Collection
	// Stale lists non-master bundles whose export no longer matches.
	Stale []string
}

// Synchronize merges the freshly scanned files into the stored collections
// and restores referential consistency:
//
//   - relationship sets carry over to files that still exist;
//   - files that vanished are dropped;
//   - tag and bundle ids that no longer exist are stripped from files;
//   - every tag's and bundle's FileIDs is rebuilt from the file side.
//
// Collections whose content did not change are not rewritten, so running it
// twice with the same input writes nothing the second time.
func (e *Engine) Synchronize(ctx context.Context, current []FileRecord) (*SyncResult, error) {
	stored, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rec := Reconcile(current, stored.Files)
	files := rec.Files

	tagIDs := make(map[string]bool, len(stored.Tags))
	for _, t := range stored.Tags {
		tagIDs[t.ID] = true
	}
	bundleIDs := make(map[string]bool, len(stored.Bundles))
	for _, b := range stored.Bundles {
		bundleIDs[b.ID] = true
	}
	for i := range files {
		files[i].TagIDs = keepKnown(files[i].TagIDs, tagIDs)
		files[i].BundleIDs = keepKnown(files[i].BundleIDs, bundleIDs)
	}

	tags := make([]Tag, len(stored.Tags))
	for i, t := range stored.Tags {
		t.FileIDs = rebuildMembers(t.FileIDs, t.ID, files, func(f FileRecord) []string { return f.TagIDs })
		tags[i] = t
	}
	bundles := make([]Bundle, len(stored.Bundles))
	for i, b := range stored.Bundles {
		b.FileIDs = rebuildMembers(b.FileIDs, b.ID, files, func(f FileRecord) []string { return f.BundleIDs })
		bundles[i] = b
	}

	result := &SyncResult{Reconcile: rec}
	var writes []pendingWrite
	add := func(w pendingWrite, changed bool, err error) error {
		if err != nil {
			return err
		}
		if changed {
			writes = append(writes, w)
			result.Written = append(result.Written, w.collection)
		}
		return nil
	}
	if err := add(changedWrite(CollectionFiles, stored.Files, files)); err != nil {
		return nil, err
	}
	if err := add(changedWrite(CollectionTags, stored.Tags, tags)); err != nil {
		return nil, err
	}
	if err := add(changedWrite(CollectionBundles, stored.Bundles, bundles)); err != nil {
		return nil, err
	}

	for _, b := range bundles {
		if ComputeStaleness(b, files) == Stale {
			result.Stale = append(result.Stale, b.ID)
		}
	}

	if len(writes) > 0 {
		if err := e.commit(ctx, writes...); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("synchronize complete",
		"files", len(files),
		"added", len(rec.Added),
		"modified", len(rec.Modified),
		"orphaned", len(rec.Orphaned),
		"written", len(result.Written),
		"stale", len(result.Stale),
	)
	return result, nil
}

// changedWrite encodes after and reports whether it differs from before.
func changedWrite[T any](c Collection, before, after []T) (pendingWrite, bool, error) {
	old, err := encodeWrite(c, before)
	if err != nil {
		return pendingWrite{}, false, err
	}
	w, err := encodeWrite(c, after)
	if err != nil {
		return pendingWrite{}, false, err
	}
	return w, !bytes.Equal(old.data, w.data), nil
}

// keepKnown drops ids that are not in known.
func keepKnown(ids []string, known map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if known[id] {
			out = append(out, id)
		}
	}
	return out
}

// rebuildMembers derives the member list of owner from the file side.
// Surviving members keep their previous order and newly found members follow
// in file order.
func rebuildMembers(previous []string, owner string, files []FileRecord, refs func(FileRecord) []string) []string {
	members := make(map[string]bool)
	for _, f := range files {
		if containsID(refs(f), owner) {
			members[f.ID] = true
		}
	}

	out := make([]string, 0, len(members))
	placed := make(map[string]bool, len(members))
	for _, id := range previous {
		if members[id] && !placed[id] {
			out = append(out, id)
			placed[id] = true
		}
	}
	for _, f := range files {
		if members[f.ID] && !placed[f.ID] {
			out = append(out, f.ID)
			placed[f.ID] = true
		}
	}
	return out
}
