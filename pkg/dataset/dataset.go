// Package dataset loads time-series observations: radial velocities or
// photometry, one row per measurement.
//
// Files are plain text with a header line naming the columns. Fields are
// comma-separated when the header contains a comma and whitespace-separated
// otherwise. Lines starting with '#' and blank lines are ignored. Recognised
// column names, case-insensitive:
//
//	time                            observation time
//	mnvel | value | flux            measured value
//	errvel | err | flux_err | uncertainty
//	tel | inst | instrument         instrument tag
//
// Other columns are ignored.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/iwvelando/keplerfit/pkg/mathutil"
)

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("dataset: missing column")

	// ErrUnknownInstrument is returned when a row's instrument is not one
	// of the configured instruments.
	ErrUnknownInstrument = errors.New("dataset: unknown instrument")

	// ErrMalformedRow is returned for rows that cannot be parsed.
	ErrMalformedRow = errors.New("dataset: malformed row")

	// ErrEmpty is returned when a file has no data rows.
	ErrEmpty = errors.New("dataset: no observations")
)

var columnAliases = map[string][]string{
	"time":        {"time"},
	"value":       {"mnvel", "value", "flux"},
	"uncertainty": {"errvel", "err", "flux_err", "uncertainty"},
	"instrument":  {"tel", "inst", "instrument"},
}

// Row is one observation.
type Row struct {
	Time        float64
	Value       float64
	Uncertainty float64
	Instrument  string
}

// Dataset holds observations in file order, stored column-wise.
type Dataset struct {
	Name          string
	Times         []float64
	Values        []float64
	Uncertainties []float64
	Instruments   []string
}

// Options controls how a file is read.
type Options struct {
	// DefaultInstrument tags every row when the file has no instrument
	// column. Empty makes the instrument column required.
	DefaultInstrument string
	// Instruments lists the accepted tags. Empty accepts any tag.
	Instruments []string
}

// Load reads the dataset at path.
func Load(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	ds, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	ds.Name = path
	return ds, nil
}

// Read parses a dataset from r.
func Read(r io.Reader, opts Options) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	var (
		lineNo int
		cols   map[string]int
		comma  bool
		ds     = &Dataset{}
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if cols == nil {
			comma = strings.Contains(line, ",")
			var err error
			cols, err = header(split(line, comma), opts.DefaultInstrument != "")
			if err != nil {
				return nil, err
			}
			continue
		}

		row, err := parseRow(split(line, comma), cols, opts.DefaultInstrument)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if len(opts.Instruments) > 0 && !slices.Contains(opts.Instruments, row.Instrument) {
			return nil, fmt.Errorf("line %d: %w: %q (configured: %s)",
				lineNo, ErrUnknownInstrument, row.Instrument, strings.Join(opts.Instruments, ", "))
		}
		ds.Append(row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if cols == nil {
		return nil, fmt.Errorf("%w: no header line", ErrMissingColumn)
	}
	if ds.Len() == 0 {
		return nil, ErrEmpty
	}
	return ds, nil
}

func split(line string, comma bool) []string {
	if !comma {
		return strings.Fields(line)
	}
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func header(fields []string, instrumentOptional bool) (map[string]int, error) {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.ToLower(f)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	cols := make(map[string]int, len(columnAliases))
	var missing []string
	for _, col := range []string{"time", "value", "uncertainty", "instrument"} {
		found := false
		for _, alias := range columnAliases[col] {
			if i, ok := index[alias]; ok {
				cols[col] = i
				found = true
				break
			}
		}
		if !found && !(col == "instrument" && instrumentOptional) {
			missing = append(missing, strings.Join(columnAliases[col], "|"))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRow(fields []string, cols map[string]int, defaultInstrument string) (Row, error) {
	num := func(col string) (float64, error) {
		i := cols[col]
		if i >= len(fields) {
			return 0, fmt.Errorf("%w: %d fields, %s expected in field %d", ErrMalformedRow, len(fields), col, i+1)
		}
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil || !mathutil.IsFinite(v) {
			return 0, fmt.Errorf("%w: %s %q is not a finite number", ErrMalformedRow, col, fields[i])
		}
		return v, nil
	}

	var (
		row Row
		err error
	)
	if row.Time, err = num("time"); err != nil {
		return row, err
	}
	if row.Value, err = num("value"); err != nil {
		return row, err
	}
	if row.Uncertainty, err = num("uncertainty"); err != nil {
		return row, err
	}
	if row.Uncertainty <= 0 {
		return row, fmt.Errorf("%w: uncertainty must be positive, got %v", ErrMalformedRow, row.Uncertainty)
	}

	row.Instrument = defaultInstrument
	if i, ok := cols["instrument"]; ok {
		if i >= len(fields) {
			return row, fmt.Errorf("%w: missing instrument field", ErrMalformedRow)
		}
		row.Instrument = fields[i]
	}
	row.Instrument = strings.ToLower(row.Instrument)
	return row, nil
}

// Append adds one observation.
func (d *Dataset) Append(r Row) {
	d.Times = append(d.Times, r.Time)
	d.Values = append(d.Values, r.Value)
	d.Uncertainties = append(d.Uncertainties, r.Uncertainty)
	d.Instruments = append(d.Instruments, r.Instrument)
}

// Len returns the number of observations.
func (d *Dataset) Len() int {
	return len(d.Times)
}

// Row returns observation i.
func (d *Dataset) Row(i int) Row {
	return Row{Time: d.Times[i], Value: d.Values[i], Uncertainty: d.Uncertainties[i], Instrument: d.Instruments[i]}
}

// Baseline returns the earliest and latest observation times.
func (d *Dataset) Baseline() (first, last float64) {
	if d.Len() == 0 {
		return 0, 0
	}
	return floats.Min(d.Times), floats.Max(d.Times)
}

// Midpoint returns the average of the earliest and latest times.
func (d *Dataset) Midpoint() float64 {
	first, last := d.Baseline()
	return (first + last) / 2
}

// InstrumentTags returns the distinct instrument tags, sorted.
func (d *Dataset) InstrumentTags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, inst := range d.Instruments {
		if !seen[inst] {
			seen[inst] = true
			tags = append(tags, inst)
		}
	}
	sort.Strings(tags)
	return tags
}
