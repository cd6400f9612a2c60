package rufas

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"rufas/internal/document"
)

// DefaultContentCacheSize is the number of file contents the Exporter keeps
// in memory between exports.
const DefaultContentCacheSize = 256

// Tag names that give an exported section its type label, in priority order.
var sectionTypeTags = []string{"doc", "issue"}

// ExporterOptions configures an Exporter.
type ExporterOptions struct {
	Format    document.Format
	CacheSize int
}

// Exporter renders bundles into export documents, hands them to a Sink and
// records the export on the bundle.
type Exporter struct {
	engine    *Engine
	scanner   Scanner
	root      string
	sink      Sink
	encryptor Encryptor
	format    document.Format
	cache     *lru.Cache[string, []byte]
}

// ExportResult describes a finished export.
type ExportResult struct {
	Document *document.Document
	Name     string
	Location string
	// Failed lists member paths whose content could not be read.
	Failed []string
}

// NewExporter creates an Exporter reading member files under root.
// A nil encryptor writes plaintext documents.
func NewExporter(engine *Engine, scanner Scanner, root string, sink Sink, encryptor Encryptor, opts ExporterOptions) (*Exporter, error) {
	format := opts.Format
	if format == "" {
		format = document.FormatXML
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultContentCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating content cache: %w", err)
	}
	return &Exporter{
		engine:    engine,
		scanner:   scanner,
		root:      root,
		sink:      sink,
		encryptor: encryptor,
		format:    format,
		cache:     cache,
	}, nil
}

// Export builds the document for a bundle, writes it to the sink, then
// records lastExport and reconciles every file's bundleIds with the bundle's
// membership. A member that cannot be read becomes an error section instead
// of failing the export. If the sink write fails nothing is recorded.
func (x *Exporter) Export(ctx context.Context, bundleID string) (*ExportResult, error) {
	snap, err := x.engine.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	bi := findBundle(snap.Bundles, bundleID)
	if bi < 0 {
		return nil, &NotFoundError{Kind: "bundle", ID: bundleID}
	}
	bundle := snap.Bundles[bi]

	now := x.engine.clock.Now().UTC()
	doc, failed := x.build(ctx, bundle, snap, now)

	data, err := document.Render(x.format, doc)
	if err != nil {
		return nil, fmt.Errorf("rendering export: %w", err)
	}

	name := document.Name(bundle.Name, now, x.format)
	if x.encryptor != nil {
		var buf bytes.Buffer
		if err := x.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return nil, fmt.Errorf("encrypting export: %w", err)
		}
		data = buf.Bytes()
		name += x.encryptor.Extension()
	}

	location, err := x.sink.Put(ctx, name, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &StorageError{Op: "export", Err: fmt.Errorf("writing %s: %w", name, err)}
	}

	snap.Bundles[bi].LastExport = &ExportSnapshot{Timestamp: Millis(now), FileIDs: cloneIDs(bundle.FileIDs)}
	applyMembership(snap.Files, bundleID, bundle.FileIDs)
	if err := commitFilesAnd(ctx, x.engine, snap.Files, CollectionBundles, snap.Bundles); err != nil {
		return nil, err
	}

	x.engine.logger.Info("bundle exported",
		"bundle", bundleID,
		"name", name,
		"sections", len(doc.Sections),
		"failed", len(failed),
	)
	return &ExportResult{Document: doc, Name: name, Location: location, Failed: failed}, nil
}

func (x *Exporter) build(ctx context.Context, bundle Bundle, snap *Snapshot, now time.Time) (*document.Document, []string) {
	files := make(map[string]FileRecord, len(snap.Files))
	for _, f := range snap.Files {
		files[f.ID] = f
	}
	tagNames := make(map[string]string, len(snap.Tags))
	for _, t := range snap.Tags {
		tagNames[t.ID] = t.Name
	}

	doc := &document.Document{
		Header: document.Header{
			Title:       bundle.Name,
			Description: bundle.Description,
			CreatedAt:   now,
			BundleID:    bundle.ID,
		},
		Sections: make([]document.Section, 0, len(bundle.FileIDs)),
	}

	var failed []string
	for i, id := range bundle.FileIDs {
		section := document.Section{
			Index:     i + 1,
			Source:    id,
			Tags:      []string{},
			Extension: strings.TrimPrefix(path.Ext(id), "."),
		}

		f, ok := files[id]
		if !ok {
			section.Error = "file is not in the registry"
			failed = append(failed, id)
			doc.Sections = append(doc.Sections, section)
			continue
		}

		for _, tid := range f.TagIDs {
			if name, ok := tagNames[tid]; ok {
				section.Tags = append(section.Tags, name)
			}
		}
		section.Type = sectionType(section.Tags)
		section.LastModified = FromMillis(f.LastModified)

		content, err := x.content(ctx, f)
		if err != nil {
			x.engine.logger.Warn("export read failed", "path", id, "error", err)
			section.Error = err.Error()
			failed = append(failed, id)
		} else {
			section.Content = string(content)
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc, failed
}

// content returns a member's bytes, served from the cache while the file's
// lastModified is unchanged.
func (x *Exporter) content(ctx context.Context, f FileRecord) ([]byte, error) {
	key := fmt.Sprintf("%s@%d", f.ID, f.LastModified)
	if data, ok := x.cache.Get(key); ok {
		return data, nil
	}
	data, err := x.scanner.ReadFile(ctx, x.root, f.ID)
	if err != nil {
		return nil, err
	}
	x.cache.Add(key, data)
	return data, nil
}

func sectionType(tags []string) string {
	for _, want := range sectionTypeTags {
		for _, t := range tags {
			if t == want {
				return want
			}
		}
	}
	return ""
}

// Format returns the document format used for new exports.
func (x *Exporter) Format() document.Format {
	return x.format
}

// Open reads an exported document back from the sink and parses it.
// Encrypted documents need dec; it may be nil for plaintext ones.
func (x *Exporter) Open(ctx context.Context, name string, dec DecryptionContext) (*document.Document, error) {
	var buf bytes.Buffer
	if err := x.sink.Get(ctx, name, &buf); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	data := buf.Bytes()

	if x.encryptor != nil && x.encryptor.Extension() != "" && strings.HasSuffix(name, x.encryptor.Extension()) {
		if dec == nil {
			return nil, fmt.Errorf("%s is encrypted: unlock the key first", name)
		}
		var plain bytes.Buffer
		if err := dec.Decrypt(bytes.NewReader(data), &plain); err != nil {
			return nil, fmt.Errorf("decrypting %s: %w", name, err)
		}
		data = plain.Bytes()
	}

	format, err := document.FormatFromName(name)
	if err != nil {
		return nil, err
	}
	return document.Parse(format, data)
}
