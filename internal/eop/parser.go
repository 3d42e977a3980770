package eop

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// Table is the result of parsing one IERS CSV product.
type Table struct {
	Model   Model
	Records []Record
}

// Column names used by the IERS finals.all.csv and finals2000A.all.csv
// products. The Bulletin A block comes first; later duplicates (Bulletin B)
// are ignored.
const (
	colMJD  = "MJD"
	colXP   = "x_pole"
	colYP   = "y_pole"
	colUT1  = "UT1-UTC"
	colLOD  = "LOD"
	colDPsi = "dPsi"
	colDEps = "dEpsilon"
	colDX   = "dX"
	colDY   = "dY"
)

// ErrUnknownFormat is returned when the header matches neither product.
var ErrUnknownFormat = errors.New("unrecognised EOP CSV header")

// Parse reads an IERS semicolon-separated EOP file. Rows with an unparseable
// MJD are skipped with a warning; empty fields become NaN.
func Parse(r io.Reader, logger *slog.Logger) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading EOP header: %w", err)
	}
	cols := indexColumns(header)

	if _, ok := cols[colMJD]; !ok {
		return nil, fmt.Errorf("%w: no %s column", ErrUnknownFormat, colMJD)
	}
	var model Model
	switch {
	case hasAll(cols, colDX, colDY):
		model = ModelIAU2000A
	case hasAll(cols, colDPsi, colDEps):
		model = ModelIAU1980
	default:
		return nil, fmt.Errorf("%w: neither dX/dY nor dPsi/dEpsilon present", ErrUnknownFormat)
	}

	t := &Table{Model: model}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading EOP line %d: %w", line, err)
		}

		field := func(name string) float64 {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return math.NaN()
			}
			return parseFloat(row[i])
		}

		mjd := field(colMJD)
		if math.IsNaN(mjd) {
			logger.Warn("skipping EOP row with invalid MJD", "line", line)
			continue
		}

		rec := Record{
			MJD:    mjd,
			XP:     field(colXP),
			YP:     field(colYP),
			UT1UTC: field(colUT1),
			LOD:    field(colLOD),
			DPsi:   math.NaN(),
			DEps:   math.NaN(),
			DX:     math.NaN(),
			DY:     math.NaN(),
		}
		// Nutation and CIP offsets are published in milliarcseconds.
		if model == ModelIAU1980 {
			rec.DPsi = field(colDPsi) / 1000
			rec.DEps = field(colDEps) / 1000
		} else {
			rec.DX = field(colDX) / 1000
			rec.DY = field(colDY) / 1000
		}
		t.Records = append(t.Records, rec)
	}

	if len(t.Records) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrInsufficientData)
	}
	return t, nil
}

// Build turns a parsed table into the Data variant matching its model.
func Build(t *Table) (Data, error) {
	switch t.Model {
	case ModelIAU1980:
		d, err := NewIAU1980(t.Records)
		if err != nil {
			return nil, err
		}
		return d, nil
	case ModelIAU2000A:
		d, err := NewIAU2000A(t.Records)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("building EOP data: unknown model %v", t.Model)
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

func hasAll(cols map[string]int, names ...string) bool {
	for _, n := range names {
		if _, ok := cols[n]; !ok {
			return false
		}
	}
	return true
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
