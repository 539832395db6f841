package bulk

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/use-agent/pagelens/models"
)

// Table is a parsed bulk input sheet.
type Table struct {
	Header []string
	Rows   [][]string

	// URLColumn is the index of the "url" column.
	URLColumn int
}

// URLs returns the url cell of every row, trimmed.
func (t *Table) URLs() []string {
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if t.URLColumn < len(row) {
			out[i] = strings.TrimSpace(row[t.URLColumn])
		}
	}
	return out
}

// ReadCSV parses a sheet whose header has a "url" column (any case).
// Blank lines are skipped and short rows are padded.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, models.NewToolError(models.ErrCodeInvalidInput, "CSV is empty; a header row with a 'url' column is required.", nil)
	}
	if err != nil {
		return nil, models.NewToolError(models.ErrCodeInvalidInput, "Could not read CSV header.", err)
	}

	t := &Table{Header: header, URLColumn: -1}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		if strings.EqualFold(h, "url") && t.URLColumn < 0 {
			t.URLColumn = i
		}
	}
	if t.URLColumn < 0 {
		return nil, models.NewToolError(models.ErrCodeInvalidInput, "CSV must have a 'url' column.", nil)
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, models.NewToolError(models.ErrCodeInvalidInput, "Could not parse CSV.", err)
		}
		for len(row) < len(header) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Result columns appended after the result fields.
const (
	ColumnStatus  = "status"
	ColumnMessage = "message"
	ColumnError   = "error"
)

// WriteCSV writes the input table augmented with one column per result
// field, in first-seen order, then status, message and error. Field
// columns never reuse an existing header name; see fieldColumnNames. Failed rows
// fill only status and error; rows that never ran are marked skipped.
func WriteCSV(w io.Writer, t *Table, items []*models.BulkItem) error {
	var fieldCols []string
	for _, item := range items {
		if item == nil || item.Result == nil || !item.Result.OK() {
			continue
		}
		for _, k := range item.Result.Keys() {
			if !slices.Contains(fieldCols, k) {
				fieldCols = append(fieldCols, k)
			}
		}
	}

	cw := csv.NewWriter(w)
	header := slices.Concat(t.Header, fieldColumnNames(t.Header, fieldCols), []string{ColumnStatus, ColumnMessage, ColumnError})
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, row := range t.Rows {
		out := slices.Clone(row)
		extra := make([]string, len(fieldCols)+3)
		status, message, errCell := &extra[len(fieldCols)], &extra[len(fieldCols)+1], &extra[len(fieldCols)+2]

		var item *models.BulkItem
		if i < len(items) {
			item = items[i]
		}
		switch {
		case item == nil || item.Result == nil:
			*status = "skipped"
		case !item.Result.OK():
			*status = string(models.StatusError)
			*errCell = fmt.Sprintf("%s: %s", item.Result.ErrorCode(), item.Result.Message)
		default:
			*status = string(models.StatusOk)
			*message = item.Result.Message
			for j, k := range fieldCols {
				if v, ok := item.Result.Get(k); ok {
					extra[j] = cell(v)
				}
			}
		}
		if err := cw.Write(append(out, extra...)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// fieldColumnPrefix namespaces a result field whose name is already taken.
const fieldColumnPrefix = "result."

// fieldColumnNames returns the header names for the result fields. A field
// that clashes (case-insensitively) with an input column, a status column
// or an earlier field is renamed "result.<field>", then suffixed with a
// counter until it is unique.
func fieldColumnNames(input, fields []string) []string {
	taken := make(map[string]bool, len(input)+len(fields)+3)
	for _, h := range slices.Concat(input, []string{ColumnStatus, ColumnMessage, ColumnError}) {
		taken[strings.ToLower(h)] = true
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		name := f
		if taken[strings.ToLower(name)] {
			name = fieldColumnPrefix + f
			for n := 2; taken[strings.ToLower(name)]; n++ {
				name = fmt.Sprintf("%s%s_%d", fieldColumnPrefix, f, n)
			}
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// cell renders scalars directly and everything else as JSON.
func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
