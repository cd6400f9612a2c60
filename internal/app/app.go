package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"rufas/internal/config"
	"rufas/internal/document"
	"rufas/internal/encryption"
	"rufas/internal/fs"
	"rufas/internal/rufas"
	"rufas/internal/sink"
	"rufas/internal/storage"
)

// Options adjusts how NewRufasApp wires a workspace.
type Options struct {
	// Operation names the CLI command being run (e.g. "Scan", "ExportBundle").
	Operation  string
	Parameters string
	// Watch installs a filesystem watcher as the poller's early trigger when
	// filesystem.watch is enabled in the config.
	Watch bool
	// Verbose logs debug records and mirrors the log to stderr.
	Verbose bool

	Clock rufas.Clock
	IDs   rufas.IDGenerator
}

// RufasApp is the application layer between the CLI and the workspace.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw paths and tag/bundle references, and releases everything
// on Close.
type RufasApp struct {
	cfg       *config.Config
	root      string
	store     rufas.Store
	scanner   *fs.OSScanner
	sink      rufas.Sink
	encryptor rufas.Encryptor
	engine    *rufas.Engine
	exporter  *rufas.Exporter
	workspace *rufas.Workspace
	watcher   *fs.Watcher
	clock     rufas.Clock
	logger    rufas.Logger
	logFile   *os.File
	op        *Operation
}

// NewRufasApp opens the folder at root and returns a fully wired RufasApp.
// The first scan and synchronization run before it returns.
// The caller must call Close when done.
func NewRufasApp(ctx context.Context, cfg *config.Config, root string, opts Options) (*RufasApp, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("opening folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRoot)
	}

	clock := opts.Clock
	if clock == nil {
		clock = rufas.RealClock{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = rufas.UUIDGenerator{}
	}
	op := NewOperation(opts.Operation, opts.Parameters, clock.Now())

	level := slog.LevelInfo
	var mirror io.Writer
	if opts.Verbose {
		level = slog.LevelDebug
		mirror = os.Stderr
	}
	sl, logFile, err := newLogger(cfg.LogDir, op.ID, level, mirror)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	a := &RufasApp{
		cfg:     cfg,
		root:    absRoot,
		clock:   clock,
		logger:  logger,
		logFile: logFile,
		op:      op,
	}
	if err := a.wire(ctx, ids, opts); err != nil {
		a.release()
		return nil, err
	}

	logger.Info("operation started", "operation", op.Name, "root", absRoot, "parameters", op.Parameters)
	return a, nil
}

func (a *RufasApp) wire(ctx context.Context, ids rufas.IDGenerator, opts Options) error {
	cfg := a.cfg

	store, err := storage.NewStoreFromConfig(cfg.Storage, a.root, a.clock)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	a.store = store

	a.scanner = fs.NewOSScannerFromConfig(cfg)

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	a.encryptor = enc

	s, err := sink.NewSinkFromConfig(ctx, cfg.Export, a.root)
	if err != nil {
		return fmt.Errorf("creating export sink: %w", err)
	}
	a.sink = s

	format, err := document.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}
	interval, err := cfg.Polling.IntervalDuration()
	if err != nil {
		return err
	}

	a.engine = rufas.NewEngine(store, a.logger, a.clock, ids)
	registry := rufas.NewRegistry(a.scanner, a.root, a.logger)
	a.exporter, err = rufas.NewExporter(a.engine, a.scanner, a.root, s, enc, rufas.ExporterOptions{
		Format:    format,
		CacheSize: cfg.Export.CacheSize,
	})
	if err != nil {
		return err
	}

	wsOpts := rufas.WorkspaceOptions{
		PollInterval:    interval,
		SeedDefaultTags: cfg.Tags.SeedDefaults,
	}
	if opts.Watch && cfg.Filesystem.Watch {
		matcher, err := a.scanner.Matcher(a.root)
		if err != nil {
			return fmt.Errorf("loading ignore rules: %w", err)
		}
		a.watcher, err = fs.NewWatcher(a.root, matcher, a.logger)
		if err != nil {
			return err
		}
		wsOpts.Trigger = a.watcher.Signals()
	}

	ws, err := rufas.OpenWorkspace(ctx, store, registry, a.engine, a.exporter, a.logger, wsOpts)
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}
	a.workspace = ws
	return nil
}

// Root returns the absolute path of the opened folder.
func (a *RufasApp) Root() string {
	return a.root
}

// Workspace returns the open workspace.
func (a *RufasApp) Workspace() *rufas.Workspace {
	return a.workspace
}

// Refresh rescans the folder.
func (a *RufasApp) Refresh(ctx context.Context) (*rufas.SyncResult, error) {
	res, err := a.workspace.Refresh(ctx)
	return res, a.op.Fail(err)
}

// Snapshot returns the three collections.
func (a *RufasApp) Snapshot(ctx context.Context) (*rufas.Snapshot, error) {
	snap, err := a.engine.Snapshot(ctx)
	return snap, a.op.Fail(err)
}

// BundleStatuses returns every bundle with its freshness.
func (a *RufasApp) BundleStatuses(ctx context.Context) ([]rufas.BundleStatus, error) {
	st, err := a.engine.BundleStatuses(ctx)
	return st, a.op.Fail(err)
}

// RelPath resolves a raw path (absolute, or relative to the working
// directory) to the slash-separated file id used inside the folder.
func (a *RufasApp) RelPath(raw string) (string, error) {
	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	rel, err := filepath.Rel(a.root, abs)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside %s", raw, a.root)
	}
	return filepath.ToSlash(rel), nil
}

func (a *RufasApp) relPaths(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		p, err := a.RelPath(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// TagEdit holds the fields `tag edit` changes; nil fields keep their value.
type TagEdit struct {
	Name        *string
	Description *string
	Color       *string
}

// CreateTag creates a tag.
func (a *RufasApp) CreateTag(ctx context.Context, in rufas.TagInput) (*rufas.Tag, error) {
	tag, err := a.engine.CreateTag(ctx, in)
	return tag, a.op.Fail(err)
}

// EditTag changes the fields set in edit on the tag named by ref.
func (a *RufasApp) EditTag(ctx context.Context, ref string, edit TagEdit) (*rufas.Tag, error) {
	tag, err := a.findTag(ctx, ref)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	up := rufas.TagUpdate{ID: tag.ID, Name: tag.Name, Description: tag.Description, Color: tag.Color}
	if edit.Name != nil {
		up.Name = *edit.Name
	}
	if edit.Description != nil {
		up.Description = *edit.Description
	}
	if edit.Color != nil {
		up.Color = *edit.Color
	}
	updated, err := a.engine.UpdateTag(ctx, up)
	return updated, a.op.Fail(err)
}

// AssignTag applies the tag named by ref to every file in rawPaths.
func (a *RufasApp) AssignTag(ctx context.Context, ref string, rawPaths []string) error {
	tag, err := a.findTag(ctx, ref)
	if err != nil {
		return a.op.Fail(err)
	}
	paths, err := a.relPaths(rawPaths)
	if err != nil {
		return a.op.Fail(err)
	}
	a.workspace.ClearSelection()
	if err := a.workspace.Select(paths...); err != nil {
		return a.op.Fail(err)
	}
	return a.op.Fail(a.workspace.TagSelection(ctx, tag.ID))
}

// RemoveTag removes the tag named by ref from one file.
func (a *RufasApp) RemoveTag(ctx context.Context, ref, rawPath string) error {
	tag, err := a.findTag(ctx, ref)
	if err != nil {
		return a.op.Fail(err)
	}
	p, err := a.RelPath(rawPath)
	if err != nil {
		return a.op.Fail(err)
	}
	return a.op.Fail(a.engine.RemoveTag(ctx, tag.ID, p))
}

// DeleteTag deletes the tag named by ref.
func (a *RufasApp) DeleteTag(ctx context.Context, ref string) (*rufas.Tag, error) {
	tag, err := a.findTag(ctx, ref)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	return tag, a.op.Fail(a.engine.DeleteTag(ctx, tag.ID))
}

// BundleEdit holds the changes `bundle edit` makes; nil fields keep their
// value. Add and Remove are raw paths.
type BundleEdit struct {
	Name        *string
	Description *string
	IsMaster    *bool
	Add         []string
	Remove      []string
}

// CreateBundle selects rawPaths and creates a bundle from the selection.
func (a *RufasApp) CreateBundle(ctx context.Context, name, description string, isMaster bool, rawPaths []string) (*rufas.Bundle, error) {
	paths, err := a.relPaths(rawPaths)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	a.workspace.ClearSelection()
	if err := a.workspace.Select(paths...); err != nil {
		return nil, a.op.Fail(err)
	}
	b, err := a.workspace.BundleSelection(ctx, name, description, isMaster)
	return b, a.op.Fail(err)
}

// EditBundle applies edit to the bundle named by ref.
func (a *RufasApp) EditBundle(ctx context.Context, ref string, edit BundleEdit) (*rufas.Bundle, error) {
	b, err := a.findBundle(ctx, ref)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	add, err := a.relPaths(edit.Add)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	remove, err := a.relPaths(edit.Remove)
	if err != nil {
		return nil, a.op.Fail(err)
	}

	up := rufas.BundleUpdate{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		IsMaster:    b.IsMaster,
	}
	if edit.Name != nil {
		up.Name = *edit.Name
	}
	if edit.Description != nil {
		up.Description = *edit.Description
	}
	if edit.IsMaster != nil {
		up.IsMaster = *edit.IsMaster
	}

	drop := make(map[string]bool, len(remove))
	for _, p := range remove {
		drop[p] = true
	}
	for _, id := range b.FileIDs {
		if !drop[id] {
			up.FileIDs = append(up.FileIDs, id)
		}
	}
	up.FileIDs = append(up.FileIDs, add...)

	updated, err := a.engine.UpdateBundle(ctx, up)
	return updated, a.op.Fail(err)
}

// DeleteBundle deletes the bundle named by ref.
func (a *RufasApp) DeleteBundle(ctx context.Context, ref string) (*rufas.Bundle, error) {
	b, err := a.findBundle(ctx, ref)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	return b, a.op.Fail(a.engine.DeleteBundle(ctx, b.ID))
}

// ExportBundle checks the sink and exports the bundle named by ref.
func (a *RufasApp) ExportBundle(ctx context.Context, ref string) (*rufas.ExportResult, error) {
	b, err := a.findBundle(ctx, ref)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	if a.encryptor != nil && !a.encryptor.IsConfigured() {
		return nil, a.op.Fail(fmt.Errorf("encryption keys missing: run `rufas keys init`"))
	}
	if err := a.sink.ValidateSetup(ctx); err != nil {
		return nil, a.op.Fail(fmt.Errorf("export sink not ready: %w", err))
	}
	res, err := a.exporter.Export(ctx, b.ID)
	if err != nil {
		return nil, a.op.Fail(err)
	}
	a.logger.Info("bundle exported", "bundle", b.ID, "name", res.Name, "location", res.Location, "failed", len(res.Failed))
	return res, nil
}

// Encrypted reports whether the export document called name needs a
// passphrase to open.
func (a *RufasApp) Encrypted(name string) bool {
	return a.encryptor != nil && strings.HasSuffix(name, a.encryptor.Extension())
}

// OpenExport reads back an export document. The passphrase is only used for
// encrypted documents.
func (a *RufasApp) OpenExport(ctx context.Context, name, passphrase string) (*document.Document, error) {
	var dec rufas.DecryptionContext
	if a.Encrypted(name) {
		var err error
		dec, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return nil, a.op.Fail(fmt.Errorf("unlocking key: %w", err))
		}
	}
	doc, err := a.exporter.Open(ctx, name, dec)
	return doc, a.op.Fail(err)
}

// Watch polls the folder until ctx is cancelled. It returns
// rufas.ErrDisconnected if a scan failure closes the workspace first.
func (a *RufasApp) Watch(ctx context.Context) error {
	if a.watcher != nil {
		go a.watcher.Run(ctx)
	}
	if err := a.workspace.StartPolling(ctx); err != nil {
		return a.op.Fail(err)
	}

	done := make(chan struct{})
	go func() {
		a.workspace.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		a.workspace.StopPolling()
		<-done
		return nil
	case <-done:
		if !a.workspace.Connected() {
			return a.op.Fail(rufas.ErrDisconnected)
		}
		return nil
	}
}

// findTag resolves ref as a tag id, then as a case-insensitive tag name.
func (a *RufasApp) findTag(ctx context.Context, ref string) (*rufas.Tag, error) {
	tags, err := a.engine.Tags(ctx)
	if err != nil {
		return nil, err
	}
	var byName []int
	for i, t := range tags {
		if t.ID == ref {
			return &tags[i], nil
		}
		if strings.EqualFold(t.Name, ref) {
			byName = append(byName, i)
		}
	}
	switch len(byName) {
	case 0:
		return nil, &rufas.NotFoundError{Kind: "tag", ID: ref}
	case 1:
		return &tags[byName[0]], nil
	default:
		return nil, fmt.Errorf("%d tags are named %q: use the tag id", len(byName), ref)
	}
}

// findBundle resolves ref as a bundle id, then as a case-insensitive name.
func (a *RufasApp) findBundle(ctx context.Context, ref string) (*rufas.Bundle, error) {
	bundles, err := a.engine.Bundles(ctx)
	if err != nil {
		return nil, err
	}
	var byName []int
	for i, b := range bundles {
		if b.ID == ref {
			return &bundles[i], nil
		}
		if strings.EqualFold(b.Name, ref) {
			byName = append(byName, i)
		}
	}
	switch len(byName) {
	case 0:
		return nil, &rufas.NotFoundError{Kind: "bundle", ID: ref}
	case 1:
		return &bundles[byName[0]], nil
	default:
		return nil, fmt.Errorf("%d bundles are named %q: use the bundle id", len(byName), ref)
	}
}

// Close stops polling, closes the workspace and its store, logs the outcome
// of the operation and closes the log file.
func (a *RufasApp) Close() error {
	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"status", a.op.Status,
		"duration", a.op.Duration(a.clock.Now()),
	)
	return a.release()
}

func (a *RufasApp) release() error {
	var firstErr error

	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			firstErr = fmt.Errorf("closing watcher: %w", err)
		}
	}

	if a.workspace != nil {
		if err := a.workspace.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing workspace: %w", err)
		}
	} else if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing store: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// SetupKeys generates the encryption keys.
func SetupKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc == nil {
		return fmt.Errorf("encryption is disabled: set encryption.type in the config first")
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up keys: %w", err)
	}
	return nil
}
