package rufas_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rufas/internal/rufas"
	"rufas/internal/testutil"
)

type workspaceFixture struct {
	store   *testutil.FailingStore
	scanner *testutil.MockScanner
	clock   *testutil.StubClock
	logger  *testutil.RecordingLogger
	ws      *rufas.Workspace
}

func openWorkspace(t *testing.T, opts rufas.WorkspaceOptions, paths ...string) *workspaceFixture {
	t.Helper()
	f := &workspaceFixture{
		store:   testutil.NewFailingStore(),
		scanner: testutil.NewMockScanner(),
		clock:   testutil.FixedClock(),
		logger:  testutil.NewRecordingLogger(),
	}
	for _, p := range paths {
		f.scanner.AddFile(p, p, fileTime)
	}
	engine := rufas.NewEngine(f.store, f.logger, f.clock, testutil.NewStubIDGenerator())
	registry := rufas.NewRegistry(f.scanner, "/project", f.logger)
	exporter, err := rufas.NewExporter(engine, f.scanner, "/project", testutil.NewTestSink(), nil, rufas.ExporterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	ws, err := rufas.OpenWorkspace(context.Background(), f.store, registry, engine, exporter, f.logger, opts)
	if err != nil {
		t.Fatalf("OpenWorkspace() error = %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	f.ws = ws
	return f
}

func TestOpenWorkspace(t *testing.T) {
	ctx := context.Background()

	t.Run("initializes and registers files", func(t *testing.T) {
		f := openWorkspace(t, rufas.WorkspaceOptions{}, "src/a.ts", "b.md")
		if !f.ws.Connected() {
			t.Fatal("Connected() = false")
		}
		if f.ws.Root() != "/project" {
			t.Errorf("Root() = %q", f.ws.Root())
		}
		if len(f.ws.Entries()) != 2 {
			t.Errorf("Entries() = %+v", f.ws.Entries())
		}
		files, _ := f.ws.Engine().Files(ctx)
		if len(files) != 2 {
			t.Errorf("len(Files()) = %d", len(files))
		}
		tags, _ := f.ws.Engine().Tags(ctx)
		if len(tags) != 0 {
			t.Errorf("tags seeded without SeedDefaultTags: %d", len(tags))
		}
	})

	t.Run("seeds default tags on first open", func(t *testing.T) {
		f := openWorkspace(t, rufas.WorkspaceOptions{SeedDefaultTags: true}, "a.md")
		tags, _ := f.ws.Engine().Tags(ctx)
		if len(tags) != len(rufas.DefaultTags) {
			t.Errorf("len(Tags()) = %d, want %d", len(tags), len(rufas.DefaultTags))
		}
	})

	t.Run("scan failure opens nothing", func(t *testing.T) {
		store := testutil.NewFailingStore()
		scanner := testutil.NewMockScanner()
		scanner.FailList(errors.New("gone"))
		logger := rufas.NewNopLogger()
		engine := rufas.NewEngine(store, logger, testutil.FixedClock(), testutil.NewStubIDGenerator())
		registry := rufas.NewRegistry(scanner, "/project", logger)

		ws, err := rufas.OpenWorkspace(ctx, store, registry, engine, nil, logger, rufas.WorkspaceOptions{})
		if !rufas.IsScan(err) || ws != nil {
			t.Errorf("OpenWorkspace() = %v, %v; want nil, ScanError", ws, err)
		}
	})
}

func TestWorkspace_Selection(t *testing.T) {
	ctx := context.Background()
	f := openWorkspace(t, rufas.WorkspaceOptions{}, "a.ts", "b.ts", "c.ts")

	if err := f.ws.Select("c.ts", "a.ts"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := f.ws.Toggle("b.ts"); err != nil {
		t.Fatal(err)
	}
	if err := f.ws.Toggle("c.ts"); err != nil {
		t.Fatal(err)
	}
	if got := f.ws.Selected(); !equalIDs(got, "a.ts", "b.ts") {
		t.Errorf("Selected() = %v", got)
	}
	if err := f.ws.Select("ghost.ts"); !rufas.IsNotFound(err) {
		t.Errorf("Select(ghost) error = %v", err)
	}

	b, err := f.ws.BundleSelection(ctx, "API", "", false)
	if err != nil {
		t.Fatalf("BundleSelection() error = %v", err)
	}
	if !equalIDs(b.FileIDs, "a.ts", "b.ts") {
		t.Errorf("bundle FileIDs = %v", b.FileIDs)
	}

	tag, err := f.ws.Engine().CreateTag(ctx, rufas.TagInput{Name: "core", Color: "#EF4444"})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.ws.TagSelection(ctx, tag.ID); err != nil {
		t.Fatalf("TagSelection() error = %v", err)
	}

	// Removed files drop out of the selection on refresh.
	f.scanner.Remove("b.ts")
	if _, err := f.ws.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.ws.Selected(); !equalIDs(got, "a.ts") {
		t.Errorf("Selected() after refresh = %v", got)
	}

	f.ws.ClearSelection()
	if _, err := f.ws.BundleSelection(ctx, "Empty", "", false); !rufas.IsValidation(err) {
		t.Errorf("BundleSelection(empty) error = %v, want ValidationError", err)
	}
	if err := f.ws.TagSelection(ctx, tag.ID); !rufas.IsValidation(err) {
		t.Errorf("TagSelection(empty) error = %v, want ValidationError", err)
	}
}

func TestWorkspace_ScanErrorDisconnects(t *testing.T) {
	ctx := context.Background()
	f := openWorkspace(t, rufas.WorkspaceOptions{}, "a.ts")
	if err := f.ws.Select("a.ts"); err != nil {
		t.Fatal(err)
	}

	f.scanner.FailList(errors.New("handle invalidated"))
	if _, err := f.ws.Refresh(ctx); !rufas.IsScan(err) {
		t.Fatalf("Refresh() error = %v, want ScanError", err)
	}
	if f.ws.Connected() {
		t.Error("Connected() = true after scan error")
	}
	if f.ws.Entries() != nil || len(f.ws.Selected()) != 0 {
		t.Error("workspace state not reset")
	}
	if _, err := f.ws.Refresh(ctx); !errors.Is(err, rufas.ErrDisconnected) {
		t.Errorf("Refresh() after disconnect error = %v", err)
	}
	if err := f.ws.Select("a.ts"); !errors.Is(err, rufas.ErrDisconnected) {
		t.Errorf("Select() after disconnect error = %v", err)
	}
	if err := f.ws.StartPolling(ctx); !errors.Is(err, rufas.ErrDisconnected) {
		t.Errorf("StartPolling() after disconnect error = %v", err)
	}
	if len(f.logger.Entries("ERROR")) == 0 {
		t.Error("scan failure not logged")
	}
}

func TestWorkspace_Polling(t *testing.T) {
	ctx := context.Background()

	t.Run("picks up new files", func(t *testing.T) {
		f := openWorkspace(t, rufas.WorkspaceOptions{PollInterval: time.Millisecond}, "a.ts")
		if err := f.ws.StartPolling(ctx); err != nil {
			t.Fatal(err)
		}
		if !f.ws.Polling() {
			t.Error("Polling() = false")
		}

		f.scanner.AddFile("b.ts", "b", fileTime)
		waitFor(t, func() bool {
			files, err := f.ws.Engine().Files(ctx)
			return err == nil && len(files) == 2
		})

		f.ws.StopPolling()
		f.ws.Wait()
		if f.ws.Polling() {
			t.Error("Polling() = true after StopPolling")
		}
		calls := f.scanner.ListCalls()
		time.Sleep(10 * time.Millisecond)
		if f.scanner.ListCalls() != calls {
			t.Error("scans continued after StopPolling")
		}
	})

	t.Run("scan error during polling disconnects", func(t *testing.T) {
		f := openWorkspace(t, rufas.WorkspaceOptions{PollInterval: time.Millisecond}, "a.ts")
		if err := f.ws.StartPolling(ctx); err != nil {
			t.Fatal(err)
		}
		f.scanner.FailList(errors.New("unmounted"))
		waitFor(t, func() bool { return !f.ws.Connected() })
		f.ws.Wait()
		if f.ws.Polling() {
			t.Error("Polling() = true after disconnect")
		}
	})

	t.Run("close waits for in-flight refresh", func(t *testing.T) {
		f := openWorkspace(t, rufas.WorkspaceOptions{PollInterval: time.Hour}, "a.ts")
		entered := make(chan struct{})
		release := make(chan struct{})
		var once bool
		f.scanner.OnList = func() {
			if !once {
				once = true
				close(entered)
				<-release
			}
		}
		if err := f.ws.StartPolling(ctx); err != nil {
			t.Fatal(err)
		}
		<-entered

		closed := make(chan struct{})
		go func() { f.ws.Close(); close(closed) }()
		select {
		case <-closed:
			t.Fatal("Close() returned while refresh was running")
		case <-time.After(20 * time.Millisecond):
		}
		close(release)
		select {
		case <-closed:
		case <-time.After(2 * time.Second):
			t.Fatal("Close() did not return")
		}
	})
}
