package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"rufas/internal/fs"
	"rufas/internal/rufas"
)

// MockFile is a file held by MockScanner.
type MockFile struct {
	Content []byte
	ModTime time.Time
}

// MockScanner is an in-memory folder for testing. Paths are slash-separated
// and relative; the root argument of every method is ignored. Safe for
// concurrent use.
type MockScanner struct {
	mu        sync.Mutex
	files     map[string]*MockFile
	listErr   error
	readErrs  map[string]error
	statErrs  map[string]error
	listCalls int
	// OnList, when set, runs at the start of every ListTree call.
	OnList func()
}

// NewMockScanner creates an empty folder.
func NewMockScanner() *MockScanner {
	return &MockScanner{
		files:    make(map[string]*MockFile),
		readErrs: make(map[string]error),
		statErrs: make(map[string]error),
	}
}

// AddFile adds or replaces a file.
func (m *MockScanner) AddFile(path, content string, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &MockFile{Content: []byte(content), ModTime: modTime}
}

// Touch changes a file's modification time.
func (m *MockScanner) Touch(path string, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[path]; ok {
		f.ModTime = modTime
	}
}

// Remove deletes a file.
func (m *MockScanner) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// FailList makes ListTree return err. A nil err clears the failure.
func (m *MockScanner) FailList(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// FailRead makes ReadFile of path return err.
func (m *MockScanner) FailRead(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrs[path] = err
}

// FailStat makes Stat of path return err.
func (m *MockScanner) FailStat(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statErrs[path] = err
}

// ListCalls returns how many times ListTree has been called.
func (m *MockScanner) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func (m *MockScanner) ListTree(ctx context.Context, root string) ([]rufas.Entry, error) {
	m.mu.Lock()
	m.listCalls++
	onList := m.OnList
	m.mu.Unlock()
	if onList != nil {
		onList()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.listErr != nil {
		return nil, m.listErr
	}

	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return buildTree(paths), nil
}

func (m *MockScanner) ReadFile(ctx context.Context, root, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.readErrs[path]; ok {
		return nil, err
	}
	f, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return append([]byte(nil), f.Content...), nil
}

func (m *MockScanner) Stat(ctx context.Context, root, path string) (rufas.FileStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.statErrs[path]; ok {
		return rufas.FileStat{}, err
	}
	f, ok := m.files[path]
	if !ok {
		return rufas.FileStat{}, fmt.Errorf("file not found: %s", path)
	}
	return rufas.FileStat{Size: int64(len(f.Content)), ModTime: f.ModTime}, nil
}

// buildTree nests flat paths into entries sorted the way the OS scanner
// sorts them.
func buildTree(paths []string) []rufas.Entry {
	type node struct {
		children map[string]*node
		isDir    bool
	}
	root := &node{children: map[string]*node{}}
	for _, p := range paths {
		cur := root
		parts := strings.Split(p, "/")
		for i, part := range parts {
			next, ok := cur.children[part]
			if !ok {
				next = &node{children: map[string]*node{}, isDir: i < len(parts)-1}
				cur.children[part] = next
			}
			cur = next
		}
	}

	var convert func(n *node) []rufas.Entry
	convert = func(n *node) []rufas.Entry {
		entries := make([]rufas.Entry, 0, len(n.children))
		for name, child := range n.children {
			if child.isDir {
				entries = append(entries, rufas.Entry{Name: name, Type: rufas.EntryDirectory, Children: convert(child)})
			} else {
				entries = append(entries, rufas.Entry{Name: name, Type: rufas.EntryFile})
			}
		}
		fs.SortEntries(entries)
		return entries
	}
	return convert(root)
}

var _ rufas.Scanner = (*MockScanner)(nil)
