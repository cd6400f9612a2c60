// Package document renders bundle export documents.
//
// A document is a header followed by one section per member file. The same
// Document value can be rendered as tag-delimited XML (the default), JSON, or
// TOON; XML and JSON can be parsed back for display.
package document

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Format selects how a document is serialized.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
	FormatTOON Format = "toon"
)

// ParseFormat validates a configured format name. An empty name selects XML.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXML:
		return FormatXML, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatTOON:
		return FormatTOON, nil
	default:
		return "", fmt.Errorf("unknown document format: %q", s)
	}
}

// Extension returns the file extension used for documents in this format.
func (f Format) Extension() string {
	return string(f)
}

// Header carries bundle metadata for the whole document.
type Header struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	BundleID    string    `json:"bundleId"`
}

// Section is the content of one member file.
// Error is set instead of Content when the file could not be read.
type Section struct {
	Index        int       `json:"index"`
	Source       string    `json:"source"`
	Type         string    `json:"type,omitempty"`
	Tags         []string  `json:"tags"`
	LastModified time.Time `json:"lastModified"`
	Extension    string    `json:"extension"`
	Content      string    `json:"content"`
	Error        string    `json:"error,omitempty"`
}

// Failed reports whether the section carries a read error.
func (s Section) Failed() bool {
	return s.Error != ""
}

// Document is an export document.
type Document struct {
	Header   Header    `json:"header"`
	Sections []Section `json:"documents"`
}

// Render serializes doc in the given format.
func Render(f Format, doc *Document) ([]byte, error) {
	switch f {
	case FormatXML:
		return renderXML(doc)
	case FormatJSON:
		return renderJSON(doc)
	case FormatTOON:
		return renderTOON(doc)
	default:
		return nil, fmt.Errorf("unknown document format: %q", f)
	}
}

// Parse reads a document previously produced by Render.
// TOON is write-only.
func Parse(f Format, data []byte) (*Document, error) {
	switch f {
	case FormatXML:
		return parseXML(data)
	case FormatJSON:
		return parseJSON(data)
	default:
		return nil, fmt.Errorf("cannot parse %s documents", f)
	}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lower-cases name and replaces every run of non-alphanumeric
// characters with a single dash.
func Slug(name string) string {
	slug := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "bundle"
	}
	return slug
}

// timestampLayout is compact and sortable, and safe in file and object names.
const timestampLayout = "20060102T150405Z"

// Name returns the deterministic name of a document exported at the given time.
func Name(bundleName string, at time.Time, f Format) string {
	return fmt.Sprintf("%s-%s.%s", Slug(bundleName), at.UTC().Format(timestampLayout), f.Extension())
}

// FormatFromName infers the format of an exported document from its name,
// ignoring any encryption suffix after the format extension.
func FormatFromName(name string) (Format, error) {
	for _, f := range []Format{FormatXML, FormatJSON, FormatTOON} {
		ext := "." + f.Extension()
		if strings.HasSuffix(name, ext) || strings.Contains(name, ext+".") {
			return f, nil
		}
	}
	return "", fmt.Errorf("cannot infer document format from %q", name)
}
