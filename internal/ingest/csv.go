package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"sweeps/pkg/config"
	"sweeps/pkg/model"
)

const (
	DefaultTitleColumn   = "Scrub_Title"
	DefaultURLColumn     = "Entry_Link"
	DefaultEndDateColumn = "End_Date"

	// HeaderRows is the number of sheet rows above the first data row.
	HeaderRows = 1
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrNoHeader      = errors.New("csv has no header row")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func DefaultColumns() config.Columns {
	return config.Columns{
		Title:   DefaultTitleColumn,
		URL:     DefaultURLColumn,
		EndDate: DefaultEndDateColumn,
	}
}

// withDefaults fills blank names from DefaultColumns.
func withDefaults(c config.Columns) config.Columns {
	d := DefaultColumns()
	if strings.TrimSpace(c.Title) == "" {
		c.Title = d.Title
	}
	if strings.TrimSpace(c.URL) == "" {
		c.URL = d.URL
	}
	if strings.TrimSpace(c.EndDate) == "" {
		c.EndDate = d.EndDate
	}
	return c
}

// SheetRow is the 1-based spreadsheet row a data row came from.
func SheetRow(rowIndex int) int {
	return rowIndex + HeaderRows + 1
}

// Reader maps header cells onto row fields. Header matching is
// case-insensitive and ignores surrounding whitespace.
type Reader struct {
	cols config.Columns
}

func NewReader(cols config.Columns) *Reader {
	return &Reader{cols: withDefaults(cols)}
}

type layout struct {
	title, url, endDate int
	extra               map[int]string
}

func (r *Reader) layout(header []string) (layout, error) {
	find := func(name string) int {
		return slices.IndexFunc(header, func(h string) bool {
			return strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name))
		})
	}

	l := layout{
		title:   find(r.cols.Title),
		url:     find(r.cols.URL),
		endDate: find(r.cols.EndDate),
		extra:   make(map[int]string),
	}

	var missing []string
	if l.title < 0 {
		missing = append(missing, r.cols.Title)
	}
	if l.url < 0 {
		missing = append(missing, r.cols.URL)
	}
	if l.endDate < 0 {
		missing = append(missing, r.cols.EndDate)
	}
	if len(missing) > 0 {
		return layout{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	for i, h := range header {
		if i == l.title || i == l.url || i == l.endDate {
			continue
		}
		if name := strings.TrimSpace(h); name != "" {
			l.extra[i] = name
		}
	}
	return l, nil
}

// Read parses a whole CSV document. Records may be ragged: a record
// shorter than the header leaves its trailing fields Absent.
func (r *Reader) Read(src io.Reader) ([]model.Row, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	l, err := r.layout(header)
	if err != nil {
		return nil, err
	}

	rows := make([]model.Row, 0)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", SheetRow(len(rows)), err)
		}
		rows = append(rows, l.row(rec, len(rows)))
	}
	return rows, nil
}

func (l layout) row(rec []string, index int) model.Row {
	row := model.Row{
		Title:    textCell(rec, l.title),
		URL:      textCell(rec, l.url),
		EndDate:  dateCell(rec, l.endDate),
		RowIndex: index,
	}
	for i, name := range l.extra {
		if i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
			continue
		}
		if row.Extra == nil {
			row.Extra = make(map[string]string)
		}
		row.Extra[name] = rec[i]
	}
	return row
}

func textCell(rec []string, i int) model.RawValue {
	if i >= len(rec) {
		return model.Absent()
	}
	return model.Text(rec[i])
}

// dateCell keeps finite numbers numeric so serials and epochs skip text
// parsing. Everything else stays as written.
func dateCell(rec []string, i int) model.RawValue {
	if i >= len(rec) {
		return model.Absent()
	}
	s := strings.TrimSpace(rec[i])
	if s == "" {
		return model.Text("")
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		return model.Number(n)
	}
	return model.Text(rec[i])
}
