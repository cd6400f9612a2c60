package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rufas/internal/config"
	"rufas/internal/rufas"
	"rufas/internal/testutil"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestApp(t *testing.T, mutate func(*config.Config)) (*RufasApp, string) {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"README.md":         "# project",
		"src/api.ts":        "export const api = 1;",
		"src/debug.log":     "ignored",
		".env":              "SECRET=1",
		"_drafts/notes.txt": "ignored",
	})

	cfg := config.NewConfig(t.TempDir())
	cfg.Encryption.Type = "test"
	if mutate != nil {
		mutate(cfg)
	}

	a, err := NewRufasApp(context.Background(), cfg, root, Options{
		Operation: "Test",
		IDs:       testutil.NewStubIDGenerator(),
	})
	if err != nil {
		t.Fatalf("NewRufasApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, root
}

func fileIDs(files []rufas.FileRecord) []string {
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return ids
}

func TestNewRufasApp(t *testing.T) {
	ctx := context.Background()

	t.Run("scans, seeds and persists", func(t *testing.T) {
		a, root := newTestApp(t, nil)

		snap, err := a.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if got := strings.Join(fileIDs(snap.Files), ","); got != "src/api.ts,README.md" {
			t.Errorf("files = %s", got)
		}
		if len(snap.Tags) != len(rufas.DefaultTags) {
			t.Errorf("len(Tags) = %d, want %d seeded", len(snap.Tags), len(rufas.DefaultTags))
		}
		for _, c := range rufas.Collections {
			if _, err := os.Stat(filepath.Join(root, ".rufas", "database", string(c)+".json")); err != nil {
				t.Errorf("collection %s not persisted: %v", c, err)
			}
		}
		if a.Root() != root {
			t.Errorf("Root() = %q, want %q", a.Root(), root)
		}
	})

	t.Run("reopening keeps state", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"a.md": "a"})
		cfg := config.NewConfig(t.TempDir())

		first, err := NewRufasApp(ctx, cfg, root, Options{Operation: "First"})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := first.CreateTag(ctx, rufas.TagInput{Name: "mine", Color: "#123456"}); err != nil {
			t.Fatal(err)
		}
		if err := first.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		second, err := NewRufasApp(ctx, cfg, root, Options{Operation: "Second"})
		if err != nil {
			t.Fatal(err)
		}
		defer second.Close()
		snap, err := second.Snapshot(ctx)
		if err != nil {
			t.Fatal(err)
		}
		// Seeding only happens on first initialization.
		if len(snap.Tags) != len(rufas.DefaultTags)+1 {
			t.Errorf("len(Tags) = %d", len(snap.Tags))
		}

		data, err := os.ReadFile(filepath.Join(cfg.LogDir, LogFileName))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "operation finished") || !strings.Contains(string(data), "operation=First") {
			t.Errorf("log missing operation records:\n%s", data)
		}
	})

	t.Run("errors", func(t *testing.T) {
		notDir := filepath.Join(t.TempDir(), "file.txt")
		if err := os.WriteFile(notDir, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}

		tests := []struct {
			name   string
			root   string
			mutate func(*config.Config)
		}{
			{name: "missing root", root: filepath.Join(t.TempDir(), "absent")},
			{name: "root is a file", root: notDir},
			{name: "unknown storage", root: t.TempDir(), mutate: func(c *config.Config) { c.Storage.Type = "cloud" }},
			{name: "unknown export format", root: t.TempDir(), mutate: func(c *config.Config) { c.Export.Format = "yaml" }},
			{name: "unknown encryption", root: t.TempDir(), mutate: func(c *config.Config) { c.Encryption.Type = "rot13" }},
			{name: "bad interval", root: t.TempDir(), mutate: func(c *config.Config) { c.Polling.Interval = "-1s" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := config.NewConfig(t.TempDir())
				if tt.mutate != nil {
					tt.mutate(cfg)
				}
				if a, err := NewRufasApp(ctx, cfg, tt.root, Options{}); err == nil {
					a.Close()
					t.Error("NewRufasApp() expected error")
				}
			})
		}
	})
}

func TestRufasApp_TagsAndBundles(t *testing.T) {
	ctx := context.Background()
	a, root := newTestApp(t, nil)
	api := filepath.Join(root, "src", "api.ts")
	readme := filepath.Join(root, "README.md")

	tag, err := a.CreateTag(ctx, rufas.TagInput{Name: "api", Color: "#10B981"})
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if err := a.AssignTag(ctx, "API", []string{api, readme}); err != nil {
		t.Fatalf("AssignTag() by name error = %v", err)
	}
	if err := a.RemoveTag(ctx, tag.ID, readme); err != nil {
		t.Fatalf("RemoveTag() by id error = %v", err)
	}

	color := "#000000"
	edited, err := a.EditTag(ctx, "api", TagEdit{Color: &color})
	if err != nil {
		t.Fatalf("EditTag() error = %v", err)
	}
	if edited.Name != "api" || edited.Color != color || len(edited.FileIDs) != 1 || edited.FileIDs[0] != "src/api.ts" {
		t.Errorf("EditTag() = %+v", edited)
	}

	// "core" is both a seeded tag and this one.
	if _, err := a.CreateTag(ctx, rufas.TagInput{Name: "Core", Color: "#111111"}); err != nil {
		t.Fatal(err)
	}
	if err := a.AssignTag(ctx, "core", []string{api}); err == nil || !strings.Contains(err.Error(), "use the tag id") {
		t.Errorf("AssignTag(ambiguous) error = %v", err)
	}

	b, err := a.CreateBundle(ctx, "API", "public surface", false, []string{api, readme})
	if err != nil {
		t.Fatalf("CreateBundle() error = %v", err)
	}
	if len(b.FileIDs) != 2 {
		t.Errorf("bundle FileIDs = %v", b.FileIDs)
	}

	master := true
	updated, err := a.EditBundle(ctx, "api", BundleEdit{IsMaster: &master, Remove: []string{readme}})
	if err != nil {
		t.Fatalf("EditBundle() error = %v", err)
	}
	if !updated.IsMaster || len(updated.FileIDs) != 1 || updated.FileIDs[0] != "src/api.ts" {
		t.Errorf("EditBundle() = %+v", updated)
	}

	statuses, err := a.BundleStatuses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 || statuses[0].Freshness != rufas.Fresh {
		t.Errorf("BundleStatuses() = %+v", statuses)
	}

	if _, err := a.DeleteBundle(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBundle() error = %v", err)
	}
	if _, err := a.DeleteTag(ctx, tag.ID); err != nil {
		t.Fatalf("DeleteTag() error = %v", err)
	}
	snap, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range snap.Files {
		if len(f.BundleIDs) != 0 {
			t.Errorf("%s BundleIDs = %v after delete", f.ID, f.BundleIDs)
		}
		for _, id := range f.TagIDs {
			if id == tag.ID {
				t.Errorf("%s still tagged with deleted tag", f.ID)
			}
		}
	}

	if !a.op.Failed() {
		t.Error("ambiguous tag reference did not mark the operation failed")
	}
}

func TestRufasApp_References(t *testing.T) {
	ctx := context.Background()
	a, root := newTestApp(t, nil)

	if _, err := a.DeleteTag(ctx, "nope"); !rufas.IsNotFound(err) {
		t.Errorf("DeleteTag(unknown) error = %v, want NotFoundError", err)
	}
	if _, err := a.ExportBundle(ctx, "nope"); !rufas.IsNotFound(err) {
		t.Errorf("ExportBundle(unknown) error = %v, want NotFoundError", err)
	}
	if _, err := a.CreateBundle(ctx, "Ghost", "", false, []string{filepath.Join(root, "ghost.md")}); !rufas.IsNotFound(err) {
		t.Errorf("CreateBundle(unknown file) error = %v, want NotFoundError", err)
	}

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: filepath.Join(root, "src", "api.ts"), want: "src/api.ts"},
		{raw: filepath.Join(root, "README.md"), want: "README.md"},
		{raw: root, wantErr: true},
		{raw: filepath.Dir(root), wantErr: true},
		{raw: filepath.Join(filepath.Dir(root), "elsewhere.md"), wantErr: true},
	}
	for _, tt := range tests {
		got, err := a.RelPath(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("RelPath(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("RelPath(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestRufasApp_Export(t *testing.T) {
	ctx := context.Background()

	t.Run("encrypted filesystem export opens again", func(t *testing.T) {
		a, root := newTestApp(t, func(c *config.Config) { c.Export.Format = "json" })
		b, err := a.CreateBundle(ctx, "API Docs", "", false, []string{filepath.Join(root, "src", "api.ts")})
		if err != nil {
			t.Fatal(err)
		}

		res, err := a.ExportBundle(ctx, b.ID)
		if err != nil {
			t.Fatalf("ExportBundle() error = %v", err)
		}
		if !strings.HasPrefix(res.Name, "api-docs-") || !strings.HasSuffix(res.Name, ".json.enc") {
			t.Errorf("Name = %q", res.Name)
		}
		if _, err := os.Stat(filepath.Join(root, ".rufas", "exports", res.Name)); err != nil {
			t.Errorf("export not written: %v", err)
		}
		if !a.Encrypted(res.Name) {
			t.Error("Encrypted() = false for encrypted document")
		}

		doc, err := a.OpenExport(ctx, res.Name, "ignored")
		if err != nil {
			t.Fatalf("OpenExport() error = %v", err)
		}
		if len(doc.Sections) != 1 || doc.Sections[0].Content != "export const api = 1;" {
			t.Errorf("OpenExport() = %+v", doc)
		}

		statuses, err := a.BundleStatuses(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if statuses[0].Bundle.LastExport == nil || statuses[0].Freshness != rufas.Fresh {
			t.Errorf("status after export = %+v", statuses[0])
		}
	})

	t.Run("plaintext when encryption is off", func(t *testing.T) {
		a, root := newTestApp(t, func(c *config.Config) { c.Encryption.Type = "none" })
		b, err := a.CreateBundle(ctx, "Readme", "", false, []string{filepath.Join(root, "README.md")})
		if err != nil {
			t.Fatal(err)
		}
		res, err := a.ExportBundle(ctx, b.Name)
		if err != nil {
			t.Fatalf("ExportBundle() error = %v", err)
		}
		if !strings.HasSuffix(res.Name, ".xml") || a.Encrypted(res.Name) {
			t.Errorf("Name = %q", res.Name)
		}
		data, err := os.ReadFile(filepath.Join(root, ".rufas", "exports", res.Name))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "<source>README.md</source>") {
			t.Errorf("document = %s", data)
		}
	})

	t.Run("age without keys is refused", func(t *testing.T) {
		a, root := newTestApp(t, func(c *config.Config) { c.Encryption.Type = "age" })
		b, err := a.CreateBundle(ctx, "Readme", "", false, []string{filepath.Join(root, "README.md")})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := a.ExportBundle(ctx, b.ID); err == nil || !strings.Contains(err.Error(), "keys init") {
			t.Errorf("ExportBundle() error = %v", err)
		}
	})
}

func TestRufasApp_Watch(t *testing.T) {
	a, root := newTestApp(t, func(c *config.Config) { c.Polling.Interval = "5ms" })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()

	writeTree(t, root, map[string]string{"docs/new.md": "new"})
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err := a.engine.Snapshot(context.Background())
		if err == nil && len(snap.Files) == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("new file not picked up by polling")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestRufasApp_WatchDisconnect(t *testing.T) {
	// Memory storage keeps collection writes from recreating the folder.
	a, root := newTestApp(t, func(c *config.Config) {
		c.Polling.Interval = "5ms"
		c.Storage.Type = "memory"
	})

	done := make(chan error, 1)
	go func() { done <- a.Watch(context.Background()) }()

	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, rufas.ErrDisconnected) {
			t.Errorf("Watch() error = %v, want ErrDisconnected", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after the folder vanished")
	}
}

func TestSetupKeys(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	if err := SetupKeys(cfg, "pass"); err == nil {
		t.Error("SetupKeys() with encryption disabled expected error")
	}

	cfg.Encryption.Type = "age"
	if err := SetupKeys(cfg, "correct horse"); err != nil {
		t.Fatalf("SetupKeys() error = %v", err)
	}
	if _, err := os.Stat(cfg.Encryption.PublicKeyPath); err != nil {
		t.Errorf("public key not written: %v", err)
	}
	if err := SetupKeys(cfg, "correct horse"); err == nil {
		t.Error("SetupKeys() twice expected error")
	}
}
