package mat

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
)

// Dense is a dense complex matrix.
type Dense struct {
	m *mat.CDense
}

// NewDense creates a rows by cols matrix backed by data in row-major order.
// A nil data allocates a zero matrix.
func NewDense(rows, cols int, data []complex128) *Dense {
	return &Dense{m: mat.NewCDense(rows, cols, data)}
}

// M creates a matrix from its rows.
func M(dense [][]complex128) *Dense {
	rows, cols := len(dense), 0
	if rows > 0 {
		cols = len(dense[0])
	}
	data := make([]complex128, 0, rows*cols)
	for i, row := range dense {
		if len(row) != cols {
			panic(fmt.Sprintf("ragged row %d: %d %d", i, len(row), cols))
		}
		data = append(data, row...)
	}
	return NewDense(rows, cols, data)
}

func Zeros(rows, cols int) *Dense {
	return NewDense(rows, cols, nil)
}

func Identity(n int) *Dense {
	m := Zeros(n, n)
	for i := range n {
		m.Set(i, i, 1)
	}
	return m
}

func (m *Dense) Rows() int {
	r, _ := m.m.Dims()
	return r
}

func (m *Dense) Cols() int {
	_, c := m.m.Dims()
	return c
}

func (m *Dense) IsSquare() bool { return m.Rows() == m.Cols() }

func (m *Dense) At(i, j int) complex128 { return m.m.At(i, j) }

func (m *Dense) Set(i, j int, v complex128) { m.m.Set(i, j, v) }

func (m *Dense) Clone() *Dense {
	raw := m.m.RawCMatrix()
	data := make([]complex128, 0, raw.Rows*raw.Cols)
	for i := range raw.Rows {
		data = append(data, raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols]...)
	}
	return NewDense(raw.Rows, raw.Cols, data)
}

// Mul returns a @ b.
func Mul(a, b *Dense) *Dense {
	c, err := mul(a, b)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return c
}

func mul(a, b *Dense) (*Dense, error) {
	if a.Cols() != b.Rows() {
		return nil, errors.Errorf("wrong dimensions %dx%d @ %dx%d", a.Rows(), a.Cols(), b.Rows(), b.Cols())
	}
	c := Zeros(a.Rows(), b.Cols())
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, a.m.RawCMatrix(), b.m.RawCMatrix(), 0, c.m.RawCMatrix())
	return c, nil
}

// ConjTranspose returns the conjugate transpose of m.
func (m *Dense) ConjTranspose() *Dense {
	rows, cols := m.Rows(), m.Cols()
	h := Zeros(cols, rows)
	for i := range rows {
		for j := range cols {
			h.Set(j, i, cmplx.Conj(m.At(i, j)))
		}
	}
	return h
}

// Trace returns the sum of the diagonal.
func (m *Dense) Trace() complex128 {
	var tr complex128
	for i := range min(m.Rows(), m.Cols()) {
		tr += m.At(i, i)
	}
	return tr
}

// DiagAbs returns the magnitudes of the diagonal elements.
func (m *Dense) DiagAbs() []float64 {
	d := make([]float64, min(m.Rows(), m.Cols()))
	for i := range d {
		d[i] = cmplx.Abs(m.At(i, i))
	}
	return d
}

// Outer returns the density matrix |psi><psi| of a pure state.
func Outer(psi []complex128) *Dense {
	n := len(psi)
	rho := Zeros(n, n)
	for i, vi := range psi {
		for j, vj := range psi {
			rho.Set(i, j, vi*cmplx.Conj(vj))
		}
	}
	return rho
}

func (a *Dense) Equal(b *Dense) bool {
	return mat.CEqual(a.m, b.m)
}

// EqualApprox reports whether a and b have the same shape and all elements differ by at most tol.
func (a *Dense) EqualApprox(b *Dense, tol float64) bool {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return false
	}
	for i := range a.Rows() {
		for j := range a.Cols() {
			if cmplx.Abs(a.At(i, j)-b.At(i, j)) > tol {
				return false
			}
		}
	}
	return true
}

// IsHermitian reports whether m equals its conjugate transpose within tol.
func (m *Dense) IsHermitian(tol float64) bool {
	return m.IsSquare() && m.EqualApprox(m.ConjTranspose(), tol)
}

func (m *Dense) String() string {
	lines := make([]string, 0, m.Rows())
	for i := range m.Rows() {
		cs := make([]string, 0, m.Cols())
		for j := range m.Cols() {
			cs = append(cs, formatComplex(m.At(i, j)))
		}
		lines = append(lines, strings.Join(cs, "\t"))
	}
	return strings.Join(lines, "\n")
}

func formatComplex(v complex128) string {
	switch {
	case imag(v) == 0:
		return format(real(v))
	case real(v) == 0:
		return format(imag(v)) + "i"
	default:
		sign, im := "+", imag(v)
		if im < 0 {
			sign, im = "-", -im
		}
		return format(real(v)) + sign + strings.TrimSpace(format(im)) + "i"
	}
}

func format(v float64) string {
	// If v is 0 or -0, return "0" immediately to avoid returning "-0".
	if v == 0 {
		return " 0"
	}

	s := fmt.Sprintf("%v", v)

	// Add a space before non-negative numbers to align with other negative numbers in the same column.
	if v >= 0 || math.IsNaN(v) {
		s = " " + s
	}

	return s
}
