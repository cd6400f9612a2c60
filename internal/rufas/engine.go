package rufas

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"
)

// Engine owns the files, tags and bundles collections and keeps the
// references between them consistent. After every successful operation each
// tag's and bundle's FileIDs equal the set of files that reference it.
//
// Every mutation reads whole collections, computes new ones and writes them
// back whole. Writes belonging to one operation are issued together and all
// awaited; there is no rollback if one of them fails.
type Engine struct {
	store  Store
	logger Logger
	clock  Clock
	idgen  IDGenerator
}

// NewEngine creates an Engine with the provided dependencies.
func NewEngine(store Store, logger Logger, clock Clock, idgen IDGenerator) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
	}
}

// Snapshot is a point-in-time copy of all three collections.
type Snapshot struct {
	Files   []FileRecord
	Tags    []Tag
	Bundles []Bundle
}

// Files returns the file collection.
func (e *Engine) Files(ctx context.Context) ([]FileRecord, error) {
	return readCollection[FileRecord](ctx, e.store, CollectionFiles)
}

// Tags returns the tag collection.
func (e *Engine) Tags(ctx context.Context) ([]Tag, error) {
	return readCollection[Tag](ctx, e.store, CollectionTags)
}

// Bundles returns the bundle collection.
func (e *Engine) Bundles(ctx context.Context) ([]Bundle, error) {
	return readCollection[Bundle](ctx, e.store, CollectionBundles)
}

// Bundle returns one bundle by id.
func (e *Engine) Bundle(ctx context.Context, id string) (*Bundle, error) {
	bundles, err := e.Bundles(ctx)
	if err != nil {
		return nil, err
	}
	i := findBundle(bundles, id)
	if i < 0 {
		return nil, &NotFoundError{Kind: "bundle", ID: id}
	}
	return &bundles[i], nil
}

// Snapshot reads all three collections.
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	files, err := e.Files(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := e.Tags(ctx)
	if err != nil {
		return nil, err
	}
	bundles, err := e.Bundles(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Files: files, Tags: tags, Bundles: bundles}, nil
}

// pendingWrite is an encoded collection waiting to be committed.
type pendingWrite struct {
	collection Collection
	data       []byte
}

func encodeWrite[T any](c Collection, records []T) (pendingWrite, error) {
	data, err := encodeCollection(records)
	if err != nil {
		return pendingWrite{}, &StorageError{Collection: c, Op: "write", Err: fmt.Errorf("encoding: %w", err)}
	}
	return pendingWrite{collection: c, data: data}, nil
}

// commit writes every pending collection concurrently and waits for all of
// them. Cancelling ctx does not abort writes already issued, so an abandoned
// caller never leaves a half-written collection behind. Writes that succeed
// stay committed even when another write in the batch fails.
func (e *Engine) commit(ctx context.Context, writes ...pendingWrite) error {
	ctx = context.WithoutCancel(ctx)

	p := pool.New().WithErrors()
	for _, w := range writes {
		p.Go(func() error {
			if err := e.store.Write(ctx, w.collection, w.data); err != nil {
				return &StorageError{Collection: w.collection, Op: "write", Err: err}
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		e.logger.Error("collection write failed", "error", err)
		return err
	}
	return nil
}

// commitFilesAnd encodes files plus one other collection and commits both.
func commitFilesAnd[T any](ctx context.Context, e *Engine, files []FileRecord, c Collection, records []T) error {
	fw, err := encodeWrite(CollectionFiles, files)
	if err != nil {
		return err
	}
	ow, err := encodeWrite(c, records)
	if err != nil {
		return err
	}
	return e.commit(ctx, fw, ow)
}

func findFile(files []FileRecord, id string) int {
	for i := range files {
		if files[i].ID == id {
			return i
		}
	}
	return -1
}

func findTag(tags []Tag, id string) int {
	for i := range tags {
		if tags[i].ID == id {
			return i
		}
	}
	return -1
}

func findBundle(bundles []Bundle, id string) int {
	for i := range bundles {
		if bundles[i].ID == id {
			return i
		}
	}
	return -1
}

// requireFiles returns the index of every requested file, or a NotFoundError
// for the first id that is not in the registry.
func requireFiles(files []FileRecord, ids []string) ([]int, error) {
	idx := make([]int, 0, len(ids))
	for _, id := range ids {
		i := findFile(files, id)
		if i < 0 {
			return nil, &NotFoundError{Kind: "file", ID: id}
		}
		idx = append(idx, i)
	}
	return idx, nil
}
