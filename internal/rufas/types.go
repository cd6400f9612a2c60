package rufas

import "time"

// Collection names one of the three persisted collections.
type Collection string

const (
	CollectionFiles   Collection = "files"
	CollectionTags    Collection = "tags"
	CollectionBundles Collection = "bundles"
)

// Collections lists every collection in write order.
var Collections = []Collection{CollectionFiles, CollectionTags, CollectionBundles}

// FileRecord is the registry entry for one file under the opened root.
// ID and Path are the same slash-separated relative path.
// TagIDs and BundleIDs are the canonical side of every relationship;
// Tag.FileIDs and Bundle.FileIDs are always derived from them.
type FileRecord struct {
	ID           string   `json:"id"`
	Path         string   `json:"path"`
	TagIDs       []string `json:"tagIds"`
	BundleIDs    []string `json:"bundleIds"`
	LastModified int64    `json:"lastModified"`
}

// NewFileRecord creates a record with empty relationship sets.
func NewFileRecord(path string, lastModified int64) FileRecord {
	return FileRecord{
		ID:           path,
		Path:         path,
		TagIDs:       []string{},
		BundleIDs:    []string{},
		LastModified: lastModified,
	}
}

// Tag is a named, colored label applied to any number of files.
type Tag struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	FileIDs     []string `json:"fileIds"`
}

// ExportSnapshot records which files a bundle contained when it was last exported.
// Timestamp is epoch millis.
type ExportSnapshot struct {
	Timestamp int64    `json:"timestamp"`
	FileIDs   []string `json:"fileIds"`
}

// Bundle is a user-curated set of files plus its export state.
// A nil LastExport means the bundle has never been exported or baselined.
type Bundle struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	IsMaster    bool            `json:"isMaster"`
	FileIDs     []string        `json:"fileIds"`
	CreatedAt   int64           `json:"createdAt"`
	LastExport  *ExportSnapshot `json:"lastExport"`
}

// EntryType distinguishes files from directories in a scanned tree.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
)

// Entry is one node of a scanned directory tree.
type Entry struct {
	Name     string    `json:"name"`
	Type     EntryType `json:"type"`
	Children []Entry   `json:"children,omitempty"`
}

// Freshness reports whether a bundle's last export reflects the current files.
type Freshness string

const (
	Fresh Freshness = "fresh"
	Stale Freshness = "stale"
)

// Millis converts t to epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
