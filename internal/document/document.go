// Package document loads loan documents from disk into engine-ready text.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/gregorydickson/loan-sub001/internal/model"
)

// RawSuffix marks the optional sibling file holding the raw text a document was cleaned from
const RawSuffix = ".raw.txt"

// PageBreak separates pages in extracted text
const PageBreak = "\f"

var namespace = uuid.MustParse("6f1c3b1e-8d2a-4c55-9a43-2f0e7d9b5c10")

// Document is one loaded document. Raw is empty when no raw text exists.
type Document struct {
	Meta model.DocumentMeta
	Path string
	Text string
	Raw  string
}

// HasRaw reports whether offsets must be translated back to a raw text
func (d Document) HasRaw() bool {
	return d.Raw != ""
}

// FromText builds a document from in-memory text. A zero pageCount is derived
// from form feeds in the text.
func FromText(name, text, raw string, pageCount int) Document {
	if pageCount <= 0 {
		pageCount = CountPages(text)
	}
	return Document{
		Meta: model.DocumentMeta{
			ID:        NewID(name, text),
			Name:      name,
			PageCount: pageCount,
		},
		Text: text,
		Raw:  raw,
	}
}

// NewID derives a stable document id from its name and content
func NewID(name, text string) string {
	return uuid.NewSHA1(namespace, []byte(name+"\x00"+text)).String()
}

// CountPages returns 1 + the number of page breaks
func CountPages(text string) int {
	return 1 + strings.Count(text, PageBreak)
}

// Load reads a .txt, .md, .html or .htm file. A sibling <name>.raw.txt is
// loaded as the raw text when present.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}

	var text string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		text = string(data)
	case ".html", ".htm":
		text, err = VisibleText(string(data))
		if err != nil {
			return Document{}, fmt.Errorf("parse html %s: %w", path, err)
		}
	default:
		return Document{}, fmt.Errorf("unsupported document type %q", ext)
	}

	raw, err := loadRaw(path)
	if err != nil {
		return Document{}, err
	}

	doc := FromText(filepath.Base(path), text, raw, 0)
	doc.Path = path
	return doc, nil
}

func loadRaw(path string) (string, error) {
	rawPath := strings.TrimSuffix(path, filepath.Ext(path)) + RawSuffix
	data, err := os.ReadFile(rawPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read raw text: %w", err)
	}
	return string(data), nil
}

// LoadDir loads every supported document in dir, sorted by file name.
// Raw sibling files are attached to their document, never loaded on their own.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), RawSuffix) || !Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		doc, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Supported reports whether Load accepts the file extension
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".html", ".htm":
		return true
	}
	return false
}

// VisibleText returns the text of an HTML document, one block element per
// line, skipping scripts and styles
func VisibleText(content string) (string, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			buf.WriteString("\n")
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if block {
			buf.WriteString("\n")
		}
	}
	walk(doc)

	var lines []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "dd": true,
	"div": true, "dl": true, "dt": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "tr": true, "ul": true,
}
