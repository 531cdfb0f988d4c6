// Package loader turns CSV price histories into asset series and fetches them
// from local directories, object storage or bar stores.
package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"backtest-lab/internal/diagnostics"
	"backtest-lab/internal/domain"
)

var (
	// ErrEmptyCSV is returned when the input has no header row.
	ErrEmptyCSV = errors.New("empty csv")
	// ErrDuplicateColumn is returned when two header fields map to the same column.
	ErrDuplicateColumn = errors.New("duplicate column types")
	// ErrMissingDate is returned when no header field maps to the date column.
	ErrMissingDate = errors.New("missing required date column")
	// ErrMissingClose is returned when no header field maps to close (or price).
	ErrMissingClose = errors.New("missing required close (price) column")
	// ErrNoValidRows is returned when every row has an unparsable date or close.
	ErrNoValidRows = errors.New("no valid rows after parsing")
	// ErrInvalidRows is returned when some rows have an unparsable date or close.
	ErrInvalidRows = errors.New("invalid rows")
	// ErrDuplicateName is returned when two loaded series share a name.
	ErrDuplicateName = errors.New("duplicate series name")
)

// Column is the data column a header field maps to.
type Column int

// Columns in header-matching priority order.
const (
	ColumnNone Column = iota
	ColumnDate
	ColumnOpen
	ColumnHigh
	ColumnLow
	ColumnClose
	ColumnVolume
)

// String returns the column name.
func (c Column) String() string {
	switch c {
	case ColumnDate:
		return "date"
	case ColumnOpen:
		return "open"
	case ColumnHigh:
		return "high"
	case ColumnLow:
		return "low"
	case ColumnClose:
		return "close"
	case ColumnVolume:
		return "volume"
	default:
		return "none"
	}
}

// CleanHeader lowercases a header field, trims it, replaces spaces with
// underscores and drops quotes.
func CleanHeader(field string) string {
	f := strings.ToLower(strings.TrimSpace(field))
	f = strings.ReplaceAll(f, " ", "_")
	return strings.ReplaceAll(f, `"`, "")
}

// MapField maps a cleaned header field to a column by keyword. An empty field
// is the date (pandas writes the index column without a name).
func MapField(field string) Column {
	switch {
	case field == "" || strings.Contains(field, "date"):
		return ColumnDate
	case strings.Contains(field, "open"):
		return ColumnOpen
	case strings.Contains(field, "high"):
		return ColumnHigh
	case strings.Contains(field, "low"):
		return ColumnLow
	case strings.Contains(field, "close"), strings.Contains(field, "price"):
		return ColumnClose
	case strings.Contains(field, "vol"):
		return ColumnVolume
	default:
		return ColumnNone
	}
}

// MapHeader returns the record index of each mapped column.
func MapHeader(header []string) (map[Column]int, error) {
	index := make(map[Column]int)
	for i, raw := range header {
		col := MapField(CleanHeader(raw))
		if col == ColumnNone {
			continue
		}
		if _, dup := index[col]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, col)
		}
		index[col] = i
	}
	if _, ok := index[ColumnDate]; !ok {
		return nil, ErrMissingDate
	}
	if _, ok := index[ColumnClose]; !ok {
		return nil, ErrMissingClose
	}
	return index, nil
}

type row struct {
	date                           int64
	open, high, low, close, volume float64
}

// ParseCSV reads one asset history. Rows shorter or longer than the header are
// padded or cut and reported once as UNEVEN_ROWS through sink. Rows with an
// unparsable date or close fail the whole load. Absent open/high/low columns
// copy close and an absent volume column is zero. Rows come back sorted by date.
func ParseCSV(r io.Reader, name string, sink diagnostics.Sink) (domain.AssetSeries, error) {
	if sink == nil {
		sink = diagnostics.Nop{}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return domain.AssetSeries{}, fmt.Errorf("read %s: %w", name, err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.AssetSeries{}, fmt.Errorf("%s: %w", name, ErrEmptyCSV)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return domain.AssetSeries{}, fmt.Errorf("read header of %s: %w", name, err)
	}
	index, err := MapHeader(header)
	if err != nil {
		return domain.AssetSeries{}, fmt.Errorf("%s: %w", name, err)
	}

	var (
		rows    []row
		uneven  int
		invalid int
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.AssetSeries{}, fmt.Errorf("read %s: %w", name, err)
		}
		if len(record) != len(header) {
			uneven++
		}

		field := func(col Column) (string, bool) {
			i, ok := index[col]
			if !ok {
				return "", false
			}
			if i >= len(record) {
				return "", true
			}
			return strings.TrimSpace(record[i]), true
		}

		dateText, _ := field(ColumnDate)
		closeText, _ := field(ColumnClose)
		date, dateErr := ParseDate(dateText)
		closeValue := ParseNumber(closeText)
		if dateErr != nil || math.IsNaN(closeValue) {
			invalid++
			continue
		}

		rw := row{date: date, close: closeValue, open: closeValue, high: closeValue, low: closeValue}
		if text, ok := field(ColumnOpen); ok {
			rw.open = ParseNumber(text)
		}
		if text, ok := field(ColumnHigh); ok {
			rw.high = ParseNumber(text)
		}
		if text, ok := field(ColumnLow); ok {
			rw.low = ParseNumber(text)
		}
		if text, ok := field(ColumnVolume); ok {
			rw.volume = ParseNumber(text)
		}
		rows = append(rows, rw)
	}

	if len(rows) == 0 {
		return domain.AssetSeries{}, fmt.Errorf("%s: %w (all dates or closes invalid)", name, ErrNoValidRows)
	}
	if invalid > 0 {
		return domain.AssetSeries{}, fmt.Errorf("%s: %w: %d rows with unparsable date or close", name, ErrInvalidRows, invalid)
	}
	if uneven > 0 {
		sink.Report(domain.Diagnostic{
			Bar:     -1,
			Asset:   name,
			Level:   domain.LevelWarn,
			Code:    domain.CodeUnevenRows,
			Message: fmt.Sprintf("%d rows did not match the header width; padded or cut to fit", uneven),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date < rows[j].date })

	// A repeated date keeps the row that appears last in the file.
	kept := rows[:0]
	duplicates := 0
	for _, rw := range rows {
		if n := len(kept); n > 0 && kept[n-1].date == rw.date {
			kept[n-1] = rw
			duplicates++
			continue
		}
		kept = append(kept, rw)
	}
	rows = kept
	if duplicates > 0 {
		sink.Report(domain.Diagnostic{
			Bar:     -1,
			Asset:   name,
			Level:   domain.LevelWarn,
			Code:    domain.CodeDuplicateDate,
			Message: fmt.Sprintf("%d rows repeated an earlier date; the last row per date was kept", duplicates),
		})
	}

	s := domain.AssetSeries{
		Name:   name,
		Date:   make([]int64, len(rows)),
		Open:   make([]float64, len(rows)),
		High:   make([]float64, len(rows)),
		Low:    make([]float64, len(rows)),
		Close:  make([]float64, len(rows)),
		Volume: make([]float64, len(rows)),
	}
	for i, rw := range rows {
		s.Date[i] = rw.date
		s.Open[i] = rw.open
		s.High[i] = rw.high
		s.Low[i] = rw.low
		s.Close[i] = rw.close
		s.Volume[i] = rw.volume
	}
	return s, nil
}
