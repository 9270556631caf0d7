// Package corpus loads the CSV knowledge source into immutable documents.
package corpus

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"navassist/internal/domain"
)

// LoadError reports a corpus that is missing or cannot be decoded.
// No query can be served without a corpus, so callers treat it as fatal.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load corpus %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Corpus is the immutable set of documents read from one version of the source.
type Corpus struct {
	source      string
	fingerprint string
	headers     []string
	docs        []domain.Document
}

// Load reads and parses the CSV file at path.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse builds a corpus from raw CSV bytes. The first record is the header.
// Every following record becomes one document whose ID is its row position.
func Parse(data []byte, source string) (*Corpus, error) {
	if !utf8.Valid(data) {
		return nil, &LoadError{Path: source, Err: errors.New("not valid UTF-8 text")}
	}
	c := &Corpus{source: source, fingerprint: Fingerprint(data)}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return c, nil
	}
	if err != nil {
		return nil, &LoadError{Path: source, Err: fmt.Errorf("read header: %w", err)}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	c.headers = header

	for row := 0; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: source, Err: fmt.Errorf("read row %d: %w", row, err)}
		}
		c.docs = append(c.docs, domain.Document{ID: row, Content: renderRow(header, record)})
	}
	return c, nil
}

// renderRow writes one "column: value" line per header column, in column
// order. Blank and missing cells keep their line with an empty value.
func renderRow(header, record []string) string {
	var sb strings.Builder
	for i, name := range header {
		if i > 0 {
			sb.WriteByte('\n')
		}
		var v string
		if i < len(record) {
			v = strings.TrimSpace(record[i])
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(v)
	}
	return sb.String()
}

// Fingerprint identifies a corpus version by the sha256 of its bytes.
func Fingerprint(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// FromDocuments builds an in-memory corpus, used by tests and callers that
// already hold documents. The fingerprint covers every document's content.
func FromDocuments(source string, docs []domain.Document) *Corpus {
	var buf bytes.Buffer
	for _, d := range docs {
		fmt.Fprintf(&buf, "%d\x00%s\x00", d.ID, d.Content)
	}
	return &Corpus{source: source, fingerprint: Fingerprint(buf.Bytes()), docs: slices.Clone(docs)}
}

// Source returns the path or label the corpus was read from.
func (c *Corpus) Source() string { return c.source }

// Fingerprint returns the content hash identifying this corpus version.
func (c *Corpus) Fingerprint() string { return c.fingerprint }

// Headers returns the CSV column names.
func (c *Corpus) Headers() []string { return slices.Clone(c.headers) }

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.docs) }

// Documents returns a copy of the documents in row order.
func (c *Corpus) Documents() []domain.Document { return slices.Clone(c.docs) }

// Texts returns document contents in row order.
func (c *Corpus) Texts() []string {
	out := make([]string, len(c.docs))
	for i, d := range c.docs {
		out[i] = d.Content
	}
	return out
}
