package document

import (
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/alpkeskin/gotoon"
)

const isoLayout = "2006-01-02T15:04:05.000Z07:00"

type xmlDocuments struct {
	XMLName   xml.Name      `xml:"documents"`
	Header    xmlHeader     `xml:"header"`
	Documents []xmlDocument `xml:"document"`
}

type xmlHeader struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	CreatedAt   string `xml:"created_at"`
	BundleID    string `xml:"bundle_id"`
}

type xmlDocument struct {
	Index        int      `xml:"index,attr"`
	Source       string   `xml:"source"`
	Type         string   `xml:"type,omitempty"`
	Tags         []string `xml:"tags>tag"`
	LastModified string   `xml:"last_modified"`
	Extension    string   `xml:"extension"`
	Error        string   `xml:"error,omitempty"`
	Content      xmlText  `xml:"document_content"`
}

// ContentEncodingBase64 marks document_content that is stored as base64.
const ContentEncodingBase64 = "base64"

// xmlText keeps file content readable by emitting it as CDATA rather than
// entity-escaping every newline. Content XML cannot carry verbatim is
// base64-encoded and flagged with the encoding attribute.
type xmlText struct {
	Encoding string `xml:"encoding,attr,omitempty"`
	Text     string `xml:",cdata"`
}

func newXMLText(content string) xmlText {
	if xmlSafe(content) {
		return xmlText{Text: content}
	}
	return xmlText{Encoding: ContentEncodingBase64, Text: base64.StdEncoding.EncodeToString([]byte(content))}
}

func (t xmlText) decode() (string, error) {
	switch t.Encoding {
	case "":
		return t.Text, nil
	case ContentEncodingBase64:
		data, err := base64.StdEncoding.DecodeString(t.Text)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown content encoding %q", t.Encoding)
	}
}

// xmlSafe reports whether s survives a CDATA round trip unchanged: valid
// UTF-8 made only of XML 1.0 characters. Carriage returns are excluded too
// since parsers normalize them to newlines.
func xmlSafe(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n':
		case r < 0x20:
			return false
		case r == 0xFFFE || r == 0xFFFF:
			return false
		}
	}
	return true
}

func renderXML(doc *Document) ([]byte, error) {
	out := xmlDocuments{
		Header: xmlHeader{
			Title:       doc.Header.Title,
			Description: doc.Header.Description,
			CreatedAt:   doc.Header.CreatedAt.UTC().Format(isoLayout),
			BundleID:    doc.Header.BundleID,
		},
		Documents: make([]xmlDocument, 0, len(doc.Sections)),
	}
	for _, s := range doc.Sections {
		out.Documents = append(out.Documents, xmlDocument{
			Index:        s.Index,
			Source:       s.Source,
			Type:         s.Type,
			Tags:         s.Tags,
			LastModified: s.LastModified.UTC().Format(isoLayout),
			Extension:    s.Extension,
			Error:        s.Error,
			Content:      newXMLText(s.Content),
		})
	}

	data, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding xml document: %w", err)
	}
	return append(data, '\n'), nil
}

func parseXML(data []byte) (*Document, error) {
	var in xmlDocuments
	if err := xml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decoding xml document: %w", err)
	}

	created, err := parseTime(in.Header.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing header timestamp: %w", err)
	}
	doc := &Document{
		Header: Header{
			Title:       in.Header.Title,
			Description: in.Header.Description,
			CreatedAt:   created,
			BundleID:    in.Header.BundleID,
		},
		Sections: make([]Section, 0, len(in.Documents)),
	}
	for _, d := range in.Documents {
		modified, err := parseTime(d.LastModified)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp of %s: %w", d.Source, err)
		}
		content, err := d.Content.decode()
		if err != nil {
			return nil, fmt.Errorf("decoding content of %s: %w", d.Source, err)
		}
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		doc.Sections = append(doc.Sections, Section{
			Index:        d.Index,
			Source:       d.Source,
			Type:         d.Type,
			Tags:         tags,
			LastModified: modified,
			Extension:    d.Extension,
			Content:      content,
			Error:        d.Error,
		})
	}
	return doc, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func renderJSON(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding json document: %w", err)
	}
	return append(data, '\n'), nil
}

func parseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding json document: %w", err)
	}
	for i := range doc.Sections {
		if doc.Sections[i].Tags == nil {
			doc.Sections[i].Tags = []string{}
		}
	}
	return &doc, nil
}

func renderTOON(doc *Document) ([]byte, error) {
	out, err := gotoon.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding toon document: %w", err)
	}
	return []byte(out + "\n"), nil
}
