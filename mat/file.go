package mat

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A matrix file is a CSV whose first record is the shape "rows,cols",
// followed by one "value,row,col" record per non-zero element in row-major order.
// The value or the row is left empty when it repeats the previous record.
// Values are written in numpy notation, e.g. 1+2j.

// WriteFile writes m to the named file.
func WriteFile(fpath string, m *Dense) error {
	f, err := os.Create(fpath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err1 := WriteCSV(f, m); err1 != nil && err == nil {
		err = errors.Wrap(err1, fpath)
	}
	if err1 := f.Close(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	return err
}

func WriteCSV(dst io.Writer, m *Dense) error {
	w := csv.NewWriter(dst)
	if err := w.Write([]string{strconv.Itoa(m.Rows()), strconv.Itoa(m.Cols())}); err != nil {
		return errors.Wrap(err, "")
	}

	// prev is the previously written value for compression.
	prev := vRowCol{row: -1, col: -1}
	first := true
	var err error
	for _, v := range m.COO().Data {
		var vStr string
		if first || v.v != prev.v {
			vStr = formatNumpy(v.v)
		}
		var rowStr string
		if v.row != prev.row {
			rowStr = strconv.Itoa(v.row)
		}
		if err1 := w.Write([]string{vStr, rowStr, strconv.Itoa(v.col)}); err1 != nil {
			err = errors.Wrap(err1, "")
			break
		}
		prev, first = v, false
	}

	w.Flush()
	if err1 := w.Error(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	return err
}

// ReadFile reads a matrix from the named file.
func ReadFile(fpath string) (*Dense, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer f.Close()

	m, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrap(err, fpath)
	}
	return m, nil
}

func ReadCSV(src io.Reader) (*Dense, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1

	rows, cols, err := readShape(r)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	m := Zeros(rows, cols)

	cr := &cooReader{r: r}
	for {
		v, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		if v.row < 0 || v.row >= rows || v.col < 0 || v.col >= cols {
			return nil, errors.Errorf("%d out of bounds %d %d for %dx%d", cr.i, v.row, v.col, rows, cols)
		}
		m.Set(v.row, v.col, v.v)
	}
	return m, nil
}

func readShape(r *csv.Reader) (int, int, error) {
	row, err := r.Read()
	if err == io.EOF {
		return -1, -1, errors.Errorf("empty")
	}
	if err != nil {
		return -1, -1, errors.Wrap(err, "")
	}
	if len(row) != 2 {
		return -1, -1, errors.Errorf("%#v", row)
	}
	i, err := strconv.Atoi(row[0])
	if err != nil {
		return -1, -1, errors.Wrap(err, fmt.Sprintf("%#v", row))
	}
	j, err := strconv.Atoi(row[1])
	if err != nil {
		return -1, -1, errors.Wrap(err, fmt.Sprintf("%#v", row))
	}
	if i <= 0 || j <= 0 {
		return -1, -1, errors.Errorf("%#v", row)
	}
	return i, j, nil
}

type cooReader struct {
	r *csv.Reader
	i int

	prev vRowCol
}

func (r *cooReader) Read() (vRowCol, error) {
	r.i++
	record, err := r.r.Read()
	if err == io.EOF {
		return vRowCol{}, io.EOF
	}
	if err != nil {
		return vRowCol{}, errors.Wrap(err, fmt.Sprintf("%d", r.i))
	}
	if len(record) != 3 {
		return vRowCol{}, errors.Errorf("%d %#v", r.i, record)
	}

	var vrc vRowCol
	switch {
	case record[0] == "":
		vrc.v = r.prev.v
	default:
		vrc.v, err = parseNumpy(record[0])
		if err != nil {
			return vRowCol{}, errors.Wrap(err, fmt.Sprintf("%d %#v", r.i, record))
		}
	}

	switch {
	case record[1] == "":
		vrc.row = r.prev.row
	default:
		vrc.row, err = strconv.Atoi(record[1])
		if err != nil {
			return vRowCol{}, errors.Wrap(err, fmt.Sprintf("%d %#v", r.i, record))
		}
	}

	vrc.col, err = strconv.Atoi(record[2])
	if err != nil {
		return vRowCol{}, errors.Wrap(err, fmt.Sprintf("%d %#v", r.i, record))
	}

	r.prev = vrc
	return vrc, nil
}

func formatNumpy(v complex128) string {
	switch {
	case imag(v) == 0:
		return strconv.FormatFloat(real(v), 'g', -1, 64)
	default:
		s := strconv.FormatComplex(v, 'g', -1, 128)
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		return strings.ReplaceAll(s, "i", "j")
	}
}

func parseNumpy(s string) (complex128, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "j", "i")
	v, err := strconv.ParseComplex(s, 128)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	return v, nil
}
