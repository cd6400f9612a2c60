package rufas

import "context"

// BundleInput holds the fields of a new bundle. FileIDs is usually the
// current selection.
type BundleInput struct {
	Name        string
	Description string
	IsMaster    bool
	FileIDs     []string
}

// BundleUpdate replaces the editable fields of an existing bundle.
// ID, CreatedAt and LastExport are preserved.
type BundleUpdate struct {
	ID          string
	Name        string
	Description string
	IsMaster    bool
	FileIDs     []string
}

// CreateBundle validates the input and persists a new bundle. The bundle is
// baselined at creation so it starts fresh, and each member file gains the
// bundle id.
func (e *Engine) CreateBundle(ctx context.Context, in BundleInput) (*Bundle, error) {
	ids := dedupe(in.FileIDs)
	if err := validateBundle(in.Name, in.Description, ids); err != nil {
		return nil, err
	}

	files, err := e.Files(ctx)
	if err != nil {
		return nil, err
	}
	bundles, err := e.Bundles(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := requireFiles(files, ids)
	if err != nil {
		return nil, err
	}

	now := Millis(e.clock.Now())
	bundle := Bundle{
		ID:          bundleIDPrefix + e.idgen.New(),
		Name:        in.Name,
		Description: in.Description,
		IsMaster:    in.IsMaster,
		FileIDs:     ids,
		CreatedAt:   now,
		LastExport:  &ExportSnapshot{Timestamp: now, FileIDs: cloneIDs(ids)},
	}
	for _, fi := range idx {
		files[fi].BundleIDs = addID(files[fi].BundleIDs, bundle.ID)
	}
	bundles = append(bundles, bundle)

	if err := commitFilesAnd(ctx, e, files, CollectionBundles, bundles); err != nil {
		return nil, err
	}

	e.logger.Info("bundle created", "id", bundle.ID, "name", bundle.Name, "files", len(ids))
	return &bundle, nil
}

// UpdateBundle re-validates the update and replaces the bundle's fields.
// Files added to or dropped from the membership are mirrored into their
// bundleIds in the same write.
func (e *Engine) UpdateBundle(ctx context.Context, up BundleUpdate) (*Bundle, error) {
	ids := dedupe(up.FileIDs)
	if err := validateBundle(up.Name, up.Description, ids); err != nil {
		return nil, err
	}

	files, err := e.Files(ctx)
	if err != nil {
		return nil, err
	}
	bundles, err := e.Bundles(ctx)
	if err != nil {
		return nil, err
	}
	bi := findBundle(bundles, up.ID)
	if bi < 0 {
		return nil, &NotFoundError{Kind: "bundle", ID: up.ID}
	}
	if _, err := requireFiles(files, ids); err != nil {
		return nil, err
	}

	bundles[bi].Name = up.Name
	bundles[bi].Description = up.Description
	bundles[bi].IsMaster = up.IsMaster
	bundles[bi].FileIDs = ids
	applyMembership(files, up.ID, ids)

	if err := commitFilesAnd(ctx, e, files, CollectionBundles, bundles); err != nil {
		return nil, err
	}

	e.logger.Info("bundle updated", "id", up.ID, "files", len(ids))
	updated := bundles[bi]
	return &updated, nil
}

// DeleteBundle removes the bundle and strips it from every file.
func (e *Engine) DeleteBundle(ctx context.Context, bundleID string) error {
	files, err := e.Files(ctx)
	if err != nil {
		return err
	}
	bundles, err := e.Bundles(ctx)
	if err != nil {
		return err
	}

	bi := findBundle(bundles, bundleID)
	if bi < 0 {
		return &NotFoundError{Kind: "bundle", ID: bundleID}
	}
	bundles = append(bundles[:bi], bundles[bi+1:]...)
	applyMembership(files, bundleID, nil)

	if err := commitFilesAnd(ctx, e, files, CollectionBundles, bundles); err != nil {
		return err
	}

	e.logger.Info("bundle deleted", "id", bundleID)
	return nil
}

// applyMembership makes files[i].BundleIDs contain bundleID exactly when the
// file id is in members.
func applyMembership(files []FileRecord, bundleID string, members []string) {
	set := idSet(members)
	for i := range files {
		if set[files[i].ID] {
			files[i].BundleIDs = addID(files[i].BundleIDs, bundleID)
		} else if containsID(files[i].BundleIDs, bundleID) {
			files[i].BundleIDs = removeID(files[i].BundleIDs, bundleID)
		}
	}
}
