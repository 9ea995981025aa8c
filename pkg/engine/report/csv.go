package report

import (
	"bufio"
	"io"
	"strings"

	"github.com/DrSkyle/provtag/pkg/resource"
)

// UnknownLabel is how missing or Unknown provenance is rendered.
const UnknownLabel = "<unknown>"

// Columns of a report line.
var Columns = []string{"creator", "created-date", "lifetime", "name", "id", "kind"}

// Keys names the tags a report line reads.
type Keys struct {
	Creator     string
	CreatedDate string
	Lifetime    string
}

// Line is one rendered inventory row.
type Line struct {
	Creator     string
	CreatedDate string
	Lifetime    string
	Name        string
	ID          string
	Kind        string
}

// LineFor reads the current provenance of r.
func LineFor(r resource.Resource, k Keys) Line {
	lifetime, _ := r.Tag(k.Lifetime)
	return Line{
		Creator:     provenanceValue(r, k.Creator),
		CreatedDate: provenanceValue(r, k.CreatedDate),
		Lifetime:    lifetime,
		Name:        r.Name,
		ID:          r.ID,
		Kind:        r.Type,
	}
}

func provenanceValue(r resource.Resource, key string) string {
	v, ok := r.Tag(key)
	if !ok || v == "" || v == resource.Unknown {
		return UnknownLabel
	}
	return v
}

func (l Line) fields() []string {
	return []string{l.Creator, l.CreatedDate, l.Lifetime, l.Name, l.ID, l.Kind}
}

// CSVWriter writes every field quoted, unlike encoding/csv which quotes
// only when needed.
type CSVWriter struct {
	w *bufio.Writer
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the column names.
func (c *CSVWriter) WriteHeader() error {
	return c.writeRecord(Columns)
}

// Write appends one line.
func (c *CSVWriter) Write(l Line) error {
	return c.writeRecord(l.fields())
}

// Flush writes buffered lines to the underlying writer.
func (c *CSVWriter) Flush() error {
	return c.w.Flush()
}

func (c *CSVWriter) writeRecord(fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := c.w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := c.w.WriteString(quote(f)); err != nil {
			return err
		}
	}
	return c.w.WriteByte('\n')
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// RenderCSV writes a header and one line per resource.
func RenderCSV(w io.Writer, resources []resource.Resource, k Keys) error {
	cw := NewCSVWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range resources {
		if err := cw.Write(LineFor(r, k)); err != nil {
			return err
		}
	}
	return cw.Flush()
}
