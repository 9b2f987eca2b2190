package experiment

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
)

// ReadCSV reads a numeric CSV file whose first row is the header.
func ReadCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	t, err := DecodeCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return t, nil
}

// DecodeCSV parses a numeric CSV stream with a header row.
func DecodeCSV(r io.Reader) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	if len(records) < 2 {
		return nil, errors.ErrEmptyData
	}

	header := make([]string, len(records[0]))
	for j, h := range records[0] {
		header[j] = strings.TrimSpace(h)
	}
	cols := make([][]float64, len(header))
	for j := range cols {
		cols[j] = make([]float64, len(records)-1)
	}
	for i, rec := range records[1:] {
		for j, cell := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, errors.NewValueError("DecodeCSV",
					"row "+strconv.Itoa(i+2)+" column "+header[j]+": "+err.Error())
			}
			cols[j][i] = v
		}
	}
	return table.FromColumns(header, cols)
}

// SplitTarget separates the target column from the features.
func SplitTarget(t *table.Table, target string) (*table.Table, []float64, error) {
	y, err := t.Column(target)
	if err != nil {
		return nil, nil, errors.NewValidationError("target", "column not found", target)
	}
	if t.Cols() < 2 {
		return nil, nil, errors.NewValidationError("target", "no feature columns besides the target", target)
	}
	X, err := t.Drop(target)
	if err != nil {
		return nil, nil, err
	}
	return X, y, nil
}

// WriteCSV writes t with a header row.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	rows, cols := t.Data.Dims()
	rec := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			rec[j] = strconv.FormatFloat(t.Data.At(i, j), 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// LabelColumn names the prediction column appended by AppendLabel.
const LabelColumn = "Label"

// AppendLabel returns t with labels as a trailing Label column. A Label
// column already present in t, such as one from a previous prediction run,
// is replaced.
func AppendLabel(t *table.Table, labels []float64) (*table.Table, error) {
	if t.Index(LabelColumn) >= 0 {
		var err error
		if t, err = t.Drop(LabelColumn); err != nil {
			return nil, err
		}
	}
	col, err := table.FromColumns([]string{LabelColumn}, [][]float64{labels})
	if err != nil {
		return nil, err
	}
	out, err := table.HStack(t, col)
	if err != nil {
		return nil, errors.Wrap(err, "append labels")
	}
	return out, nil
}
