package rufas_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rufas/internal/rufas"
	"rufas/internal/testutil"
)

func TestRegistry_Scan(t *testing.T) {
	t.Run("flattens tree depth first", func(t *testing.T) {
		scanner := testutil.NewMockScanner()
		scanner.AddFile("README.md", "readme", fileTime)
		scanner.AddFile("src/api.ts", "api", fileTime)
		scanner.AddFile("src/lib/util.ts", "util", fileTime.Add(time.Minute))
		scanner.AddFile("a.txt", "a", fileTime)

		reg := rufas.NewRegistry(scanner, "/project", rufas.NewNopLogger())
		files, entries, err := reg.Scan(context.Background())
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}

		var ids []string
		for _, f := range files {
			ids = append(ids, f.ID)
			if f.Path != f.ID {
				t.Errorf("Path %q != ID %q", f.Path, f.ID)
			}
			if f.TagIDs == nil || f.BundleIDs == nil || len(f.TagIDs)+len(f.BundleIDs) != 0 {
				t.Errorf("file %s has non-empty or nil relationship sets", f.ID)
			}
		}
		if !equalIDs(ids, "src/lib/util.ts", "src/api.ts", "a.txt", "README.md") {
			t.Errorf("Scan() ids = %v", ids)
		}
		if files[0].LastModified != rufas.Millis(fileTime.Add(time.Minute)) {
			t.Errorf("LastModified = %d", files[0].LastModified)
		}
		if len(entries) != 3 || entries[0].Type != rufas.EntryDirectory {
			t.Errorf("entries = %+v", entries)
		}
	})

	t.Run("list failure is a scan error", func(t *testing.T) {
		scanner := testutil.NewMockScanner()
		scanner.FailList(errors.New("permission denied"))

		reg := rufas.NewRegistry(scanner, "/project", rufas.NewNopLogger())
		_, _, err := reg.Scan(context.Background())
		if !rufas.IsScan(err) {
			t.Fatalf("Scan() error = %v, want ScanError", err)
		}
	})

	t.Run("stat failure aborts instead of truncating", func(t *testing.T) {
		scanner := testutil.NewMockScanner()
		scanner.AddFile("a.txt", "a", fileTime)
		scanner.AddFile("b.txt", "b", fileTime)
		scanner.FailStat("b.txt", errors.New("handle invalidated"))

		reg := rufas.NewRegistry(scanner, "/project", rufas.NewNopLogger())
		files, _, err := reg.Scan(context.Background())
		if !rufas.IsScan(err) {
			t.Fatalf("Scan() error = %v, want ScanError", err)
		}
		if files != nil {
			t.Errorf("Scan() returned partial files %v", files)
		}
		var scanErr *rufas.ScanError
		if errors.As(err, &scanErr) && scanErr.Path != "b.txt" {
			t.Errorf("ScanError.Path = %q, want b.txt", scanErr.Path)
		}
	})
}

func TestFlattenEntries(t *testing.T) {
	entries := []rufas.Entry{
		{Name: "docs", Type: rufas.EntryDirectory, Children: []rufas.Entry{
			{Name: "empty", Type: rufas.EntryDirectory},
			{Name: "guide.md", Type: rufas.EntryFile},
		}},
		{Name: "main.go", Type: rufas.EntryFile},
	}
	got := rufas.FlattenEntries(entries)
	if !equalIDs(got, "docs/guide.md", "main.go") {
		t.Errorf("FlattenEntries() = %v", got)
	}
}

func TestReconcile(t *testing.T) {
	stored := []rufas.FileRecord{
		{ID: "a", Path: "a", TagIDs: []string{"t1"}, BundleIDs: []string{"b1"}, LastModified: 100},
		{ID: "b", Path: "b", TagIDs: []string{"t1"}, BundleIDs: []string{}, LastModified: 100},
		{ID: "c", Path: "c", TagIDs: []string{}, BundleIDs: []string{"b1"}, LastModified: 100},
	}

	t.Run("carries relationships and reports changes", func(t *testing.T) {
		scanned := []rufas.FileRecord{
			rufas.NewFileRecord("a", 100),
			rufas.NewFileRecord("c", 200),
			rufas.NewFileRecord("d", 300),
		}
		res := rufas.Reconcile(scanned, stored)

		if len(res.Files) != 3 {
			t.Fatalf("len(Files) = %d, want 3", len(res.Files))
		}
		if !equalIDs(res.Files[0].TagIDs, "t1") || !equalIDs(res.Files[0].BundleIDs, "b1") {
			t.Errorf("a lost relationships: %+v", res.Files[0])
		}
		if res.Files[1].LastModified != 200 || !equalIDs(res.Files[1].BundleIDs, "b1") {
			t.Errorf("c = %+v", res.Files[1])
		}
		if len(res.Files[2].TagIDs) != 0 {
			t.Errorf("new file d has tags %v", res.Files[2].TagIDs)
		}
		if !equalIDs(res.Added, "d") || !equalIDs(res.Modified, "c") || !equalIDs(res.Orphaned, "b") {
			t.Errorf("Added=%v Modified=%v Orphaned=%v", res.Added, res.Modified, res.Orphaned)
		}
		if !res.Changed() {
			t.Error("Changed() = false")
		}
	})

	t.Run("unchanged scan", func(t *testing.T) {
		scanned := []rufas.FileRecord{
			rufas.NewFileRecord("a", 100),
			rufas.NewFileRecord("b", 100),
			rufas.NewFileRecord("c", 100),
		}
		res := rufas.Reconcile(scanned, stored)
		if res.Changed() {
			t.Errorf("Changed() = true: %+v", res)
		}
	})

	t.Run("rename is orphan plus addition", func(t *testing.T) {
		scanned := []rufas.FileRecord{
			rufas.NewFileRecord("A", 100),
			rufas.NewFileRecord("b", 100),
			rufas.NewFileRecord("c", 100),
		}
		res := rufas.Reconcile(scanned, stored)
		if !equalIDs(res.Added, "A") || !equalIDs(res.Orphaned, "a") {
			t.Errorf("Added=%v Orphaned=%v", res.Added, res.Orphaned)
		}
	})
}
