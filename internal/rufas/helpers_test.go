package rufas_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"rufas/internal/rufas"
	"rufas/internal/testutil"
)

// fileTime predates testutil.FixedClock so freshly created bundles are fresh.
var fileTime = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    *testutil.FailingStore
	scanner  *testutil.MockScanner
	clock    *testutil.StubClock
	ids      *testutil.StubIDGenerator
	logger   *testutil.RecordingLogger
	engine   *rufas.Engine
	registry *rufas.Registry
}

// newFixture creates an engine over an in-memory folder holding paths and
// runs one synchronize pass so the files are registered.
func newFixture(t *testing.T, paths ...string) *fixture {
	t.Helper()
	f := &fixture{
		store:   testutil.NewFailingStore(),
		scanner: testutil.NewMockScanner(),
		clock:   testutil.FixedClock(),
		ids:     testutil.NewStubIDGenerator(),
		logger:  testutil.NewRecordingLogger(),
	}
	for _, p := range paths {
		f.scanner.AddFile(p, "content of "+p, fileTime)
	}
	f.engine = rufas.NewEngine(f.store, f.logger, f.clock, f.ids)
	f.registry = rufas.NewRegistry(f.scanner, "/project", f.logger)
	f.sync(t)
	return f
}

func (f *fixture) sync(t *testing.T) *rufas.SyncResult {
	t.Helper()
	files, _, err := f.registry.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	res, err := f.engine.Synchronize(context.Background(), files)
	if err != nil {
		t.Fatalf("Synchronize() error = %v", err)
	}
	return res
}

func (f *fixture) file(t *testing.T, id string) rufas.FileRecord {
	t.Helper()
	files, err := f.engine.Files(context.Background())
	if err != nil {
		t.Fatalf("Files() error = %v", err)
	}
	for _, r := range files {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("file %s not registered", id)
	return rufas.FileRecord{}
}

func (f *fixture) tag(t *testing.T, id string) rufas.Tag {
	t.Helper()
	tags, err := f.engine.Tags(context.Background())
	if err != nil {
		t.Fatalf("Tags() error = %v", err)
	}
	for _, tag := range tags {
		if tag.ID == id {
			return tag
		}
	}
	t.Fatalf("tag %s not found", id)
	return rufas.Tag{}
}

func (f *fixture) bundle(t *testing.T, id string) rufas.Bundle {
	t.Helper()
	b, err := f.engine.Bundle(context.Background(), id)
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	return *b
}

func (f *fixture) createTag(t *testing.T, name string) *rufas.Tag {
	t.Helper()
	tag, err := f.engine.CreateTag(context.Background(), rufas.TagInput{Name: name, Color: "#3B82F6"})
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	return tag
}

func (f *fixture) createBundle(t *testing.T, name string, fileIDs ...string) *rufas.Bundle {
	t.Helper()
	b, err := f.engine.CreateBundle(context.Background(), rufas.BundleInput{Name: name, FileIDs: fileIDs})
	if err != nil {
		t.Fatalf("CreateBundle() error = %v", err)
	}
	return b
}

// assertConsistent checks that every tag's and bundle's FileIDs are exactly
// the files referencing it, and that files only reference existing ids.
func assertConsistent(t *testing.T, e *rufas.Engine) {
	t.Helper()
	snap, err := e.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	tagRefs := map[string][]string{}
	bundleRefs := map[string][]string{}
	for _, f := range snap.Files {
		for _, id := range f.TagIDs {
			tagRefs[id] = append(tagRefs[id], f.ID)
		}
		for _, id := range f.BundleIDs {
			bundleRefs[id] = append(bundleRefs[id], f.ID)
		}
	}

	known := map[string]bool{}
	for _, tag := range snap.Tags {
		known[tag.ID] = true
		if !sameSet(tag.FileIDs, tagRefs[tag.ID]) {
			t.Errorf("tag %s FileIDs = %v, files referencing it = %v", tag.ID, tag.FileIDs, tagRefs[tag.ID])
		}
	}
	for _, b := range snap.Bundles {
		known[b.ID] = true
		if !sameSet(b.FileIDs, bundleRefs[b.ID]) {
			t.Errorf("bundle %s FileIDs = %v, files referencing it = %v", b.ID, b.FileIDs, bundleRefs[b.ID])
		}
	}
	for id := range tagRefs {
		if !known[id] {
			t.Errorf("files reference missing tag %s", id)
		}
	}
	for id := range bundleRefs {
		if !known[id] {
			t.Errorf("files reference missing bundle %s", id)
		}
	}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func equalIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
