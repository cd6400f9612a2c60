package rufas

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrDisconnected is returned by Workspace operations after the workspace was
// closed or dropped because a scan failed.
var ErrDisconnected = errors.New("workspace is not open")

// WorkspaceOptions configures OpenWorkspace.
type WorkspaceOptions struct {
	// PollInterval is the rescan period used by StartPolling.
	PollInterval time.Duration
	// SeedDefaultTags creates DefaultTags when the store is initialized for
	// the first time.
	SeedDefaultTags bool
	// Trigger, when set, wakes the poller early (e.g. on filesystem events).
	Trigger <-chan struct{}
}

// Workspace is the state of one opened folder: the scanned tree, the current
// selection and the polling loop. It replaces any notion of global state; the
// caller creates one on open and discards it on close.
type Workspace struct {
	store    Store
	registry *Registry
	engine   *Engine
	exporter *Exporter
	poller   *Poller
	logger   Logger

	mu        sync.Mutex
	entries   []Entry
	paths     map[string]bool
	selected  []string
	connected bool
}

// OpenWorkspace initializes storage, performs the first scan and
// synchronization, and returns a connected workspace. A scan failure is
// returned as-is and no workspace is created.
func OpenWorkspace(ctx context.Context, store Store, registry *Registry, engine *Engine, exporter *Exporter, logger Logger, opts WorkspaceOptions) (*Workspace, error) {
	created, err := store.EnsureInitialized(ctx)
	if err != nil {
		return nil, &StorageError{Op: "initialize", Err: err}
	}
	if created {
		logger.Info("workspace initialized", "root", registry.Root())
		if opts.SeedDefaultTags {
			seeded, err := engine.SeedDefaultTags(ctx)
			if err != nil {
				return nil, err
			}
			logger.Info("default tags seeded", "count", len(seeded))
		}
	}

	w := &Workspace{
		store:     store,
		registry:  registry,
		engine:    engine,
		exporter:  exporter,
		logger:    logger,
		connected: true,
	}
	w.poller = NewPoller(opts.PollInterval, func(ctx context.Context) error {
		_, err := w.Refresh(ctx)
		return err
	}, logger)
	if opts.Trigger != nil {
		w.poller.SetTrigger(opts.Trigger)
	}

	if _, err := w.Refresh(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// Refresh rescans the folder and synchronizes the collections. A ScanError
// disconnects the workspace.
func (w *Workspace) Refresh(ctx context.Context) (*SyncResult, error) {
	if !w.Connected() {
		return nil, ErrDisconnected
	}

	files, entries, err := w.registry.Scan(ctx)
	if err != nil {
		w.logger.Error("scan failed, closing workspace", "root", w.registry.Root(), "error", err)
		w.disconnect()
		return nil, err
	}

	result, err := w.engine.Synchronize(ctx, files)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if !w.connected {
		// Closed while this refresh was running.
		w.mu.Unlock()
		return nil, ErrDisconnected
	}
	w.entries = entries
	w.paths = make(map[string]bool, len(files))
	for _, f := range files {
		w.paths[f.ID] = true
	}
	// Drop selected paths that no longer exist.
	w.selected = keepKnown(w.selected, w.paths)
	w.mu.Unlock()

	if result.Reconcile.Changed() {
		w.logger.Info("workspace refreshed",
			"added", len(result.Reconcile.Added),
			"modified", len(result.Reconcile.Modified),
			"orphaned", len(result.Reconcile.Orphaned),
		)
	}
	return result, nil
}

// Root returns the opened folder.
func (w *Workspace) Root() string {
	return w.registry.Root()
}

// Connected reports whether the workspace is usable.
func (w *Workspace) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// Entries returns the tree from the most recent scan.
func (w *Workspace) Entries() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries
}

// Engine returns the relationship engine for this workspace.
func (w *Workspace) Engine() *Engine {
	return w.engine
}

// Exporter returns the bundle exporter for this workspace.
func (w *Workspace) Exporter() *Exporter {
	return w.exporter
}

// Select adds paths to the selection. Unknown paths are NotFoundErrors.
func (w *Workspace) Select(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return ErrDisconnected
	}
	for _, p := range paths {
		if !w.paths[p] {
			return &NotFoundError{Kind: "file", ID: p}
		}
	}
	for _, p := range paths {
		w.selected = addID(w.selected, p)
	}
	return nil
}

// Toggle flips one path in or out of the selection.
func (w *Workspace) Toggle(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return ErrDisconnected
	}
	if !w.paths[path] {
		return &NotFoundError{Kind: "file", ID: path}
	}
	if containsID(w.selected, path) {
		w.selected = removeID(w.selected, path)
	} else {
		w.selected = append(w.selected, path)
	}
	return nil
}

// Selected returns the selected paths in sorted order.
func (w *Workspace) Selected() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := cloneIDs(w.selected)
	sort.Strings(out)
	return out
}

// ClearSelection empties the selection.
func (w *Workspace) ClearSelection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selected = nil
}

// BundleSelection creates a bundle from the current selection.
func (w *Workspace) BundleSelection(ctx context.Context, name, description string, isMaster bool) (*Bundle, error) {
	if !w.Connected() {
		return nil, ErrDisconnected
	}
	return w.engine.CreateBundle(ctx, BundleInput{
		Name:        name,
		Description: description,
		IsMaster:    isMaster,
		FileIDs:     w.Selected(),
	})
}

// TagSelection assigns a tag to every selected file.
func (w *Workspace) TagSelection(ctx context.Context, tagID string) error {
	if !w.Connected() {
		return ErrDisconnected
	}
	return w.engine.AssignTag(ctx, tagID, w.Selected())
}

// StartPolling begins periodic refreshes.
func (w *Workspace) StartPolling(ctx context.Context) error {
	if !w.Connected() {
		return ErrDisconnected
	}
	w.poller.Start(ctx)
	return nil
}

// StopPolling stops scheduling refreshes. A refresh already running finishes.
func (w *Workspace) StopPolling() {
	w.poller.Stop()
}

// Polling reports whether periodic refreshes are scheduled.
func (w *Workspace) Polling() bool {
	return w.poller.Running()
}

// Wait blocks until the polling loop has exited.
func (w *Workspace) Wait() {
	w.poller.Wait()
}

// Close stops polling, waits for an in-flight refresh, resets the workspace
// and closes the store.
func (w *Workspace) Close() error {
	w.disconnect()
	w.poller.Wait()
	return w.store.Close()
}

func (w *Workspace) disconnect() {
	w.poller.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = false
	w.entries = nil
	w.paths = nil
	w.selected = nil
}
