package rufas

import "context"

// TagInput holds the user-editable fields of a new tag.
type TagInput struct {
	Name        string
	Description string
	Color       string
}

// TagUpdate replaces Name, Description and Color of an existing tag.
// The tag's ID and FileIDs are preserved.
type TagUpdate struct {
	ID          string
	Name        string
	Description string
	Color       string
}

// CreateTag validates the input and persists a new tag with no files.
func (e *Engine) CreateTag(ctx context.Context, in TagInput) (*Tag, error) {
	if err := validateTag(in.Name, in.Description, in.Color); err != nil {
		return nil, err
	}

	tags, err := e.Tags(ctx)
	if err != nil {
		return nil, err
	}

	tag := Tag{
		ID:          tagIDPrefix + e.idgen.New(),
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		FileIDs:     []string{},
	}
	tags = append(tags, tag)

	if err := writeCollection(ctx, e.store, CollectionTags, tags); err != nil {
		return nil, err
	}

	e.logger.Info("tag created", "id", tag.ID, "name", tag.Name)
	return &tag, nil
}

// UpdateTag re-validates and replaces a tag's editable fields.
func (e *Engine) UpdateTag(ctx context.Context, up TagUpdate) (*Tag, error) {
	if err := validateTag(up.Name, up.Description, up.Color); err != nil {
		return nil, err
	}

	tags, err := e.Tags(ctx)
	if err != nil {
		return nil, err
	}
	i := findTag(tags, up.ID)
	if i < 0 {
		return nil, &NotFoundError{Kind: "tag", ID: up.ID}
	}

	tags[i].Name = up.Name
	tags[i].Description = up.Description
	tags[i].Color = up.Color

	if err := writeCollection(ctx, e.store, CollectionTags, tags); err != nil {
		return nil, err
	}

	e.logger.Info("tag updated", "id", up.ID)
	updated := tags[i]
	return &updated, nil
}

// AssignTag adds tagID to every listed file and every file to the tag.
// Unknown tag or file ids fail with NotFoundError before anything is written.
func (e *Engine) AssignTag(ctx context.Context, tagID string, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return &ValidationError{Field: "fileIds", Message: "select files first"}
	}

	files, err := e.Files(ctx)
	if err != nil {
		return err
	}
	tags, err := e.Tags(ctx)
	if err != nil {
		return err
	}

	ti := findTag(tags, tagID)
	if ti < 0 {
		return &NotFoundError{Kind: "tag", ID: tagID}
	}
	idx, err := requireFiles(files, fileIDs)
	if err != nil {
		return err
	}

	for _, fi := range idx {
		files[fi].TagIDs = addID(files[fi].TagIDs, tagID)
		tags[ti].FileIDs = addID(tags[ti].FileIDs, files[fi].ID)
	}

	if err := commitFilesAnd(ctx, e, files, CollectionTags, tags); err != nil {
		return err
	}

	e.logger.Info("tag assigned", "tag", tagID, "files", len(idx))
	return nil
}

// RemoveTag removes a single tag/file pair from both sides.
func (e *Engine) RemoveTag(ctx context.Context, tagID, fileID string) error {
	files, err := e.Files(ctx)
	if err != nil {
		return err
	}
	tags, err := e.Tags(ctx)
	if err != nil {
		return err
	}

	ti := findTag(tags, tagID)
	if ti < 0 {
		return &NotFoundError{Kind: "tag", ID: tagID}
	}
	fi := findFile(files, fileID)
	if fi < 0 {
		return &NotFoundError{Kind: "file", ID: fileID}
	}

	files[fi].TagIDs = removeID(files[fi].TagIDs, tagID)
	tags[ti].FileIDs = removeID(tags[ti].FileIDs, fileID)

	if err := commitFilesAnd(ctx, e, files, CollectionTags, tags); err != nil {
		return err
	}

	e.logger.Info("tag removed from file", "tag", tagID, "file", fileID)
	return nil
}

// DeleteTag removes the tag and strips it from every file.
func (e *Engine) DeleteTag(ctx context.Context, tagID string) error {
	files, err := e.Files(ctx)
	if err != nil {
		return err
	}
	tags, err := e.Tags(ctx)
	if err != nil {
		return err
	}

	ti := findTag(tags, tagID)
	if ti < 0 {
		return &NotFoundError{Kind: "tag", ID: tagID}
	}
	tags = append(tags[:ti], tags[ti+1:]...)

	// Every file is checked, not just the tag's FileIDs, so a stale
	// back-reference cannot leave a file pointing at a deleted tag.
	stripped := 0
	for i := range files {
		if containsID(files[i].TagIDs, tagID) {
			files[i].TagIDs = removeID(files[i].TagIDs, tagID)
			stripped++
		}
	}

	if err := commitFilesAnd(ctx, e, files, CollectionTags, tags); err != nil {
		return err
	}

	e.logger.Info("tag deleted", "id", tagID, "files", stripped)
	return nil
}
