package mat

import (
	"cmp"
	"fmt"
	"slices"
)

var (
	// Raise takes a site from its ground state |0> to its excited state |1>.
	Raise = [][]complex128{
		{0, 0},
		{1, 0},
	}
	// Lower takes a site from |1> to |0>.
	Lower = [][]complex128{
		{0, 1},
		{0, 0},
	}
	// Number projects onto the excited state.
	Number = [][]complex128{
		{0, 0},
		{0, 1},
	}
)

type vRowCol struct {
	v   complex128
	row int
	col int
}

// COO is a sparse matrix in coordinate format, sorted in row-major order.
type COO struct {
	rows int
	cols int
	Data []vRowCol
}

func NewCOO(dense [][]complex128) *COO {
	m := &COO{rows: len(dense), cols: len(dense[0]), Data: make([]vRowCol, 0)}
	for i, row := range dense {
		for j, v := range row {
			if v == 0 {
				continue
			}
			m.Data = append(m.Data, vRowCol{v: v, row: i, col: j})
		}
	}
	return m
}

func COOZeros(rows, cols int) *COO {
	return &COO{rows: rows, cols: cols, Data: make([]vRowCol, 0)}
}

func COOIdentity(rows int) *COO {
	m := COOZeros(rows, rows)
	for i := range rows {
		m.Data = append(m.Data, vRowCol{v: 1, row: i, col: i})
	}
	return m
}

func (m *COO) Rows() int { return m.rows }
func (m *COO) Cols() int { return m.cols }

func (m *COO) Scalar(v complex128) {
	m.rows, m.cols = 1, 1
	m.Data = m.Data[:0]
	m.Data = append(m.Data, vRowCol{v: v, row: 0, col: 0})
}

// Entries calls fn for every non-zero element in row-major order.
func (m *COO) Entries(fn func(i, j int, v complex128)) {
	for _, v := range m.Data {
		fn(v.row, v.col, v.v)
	}
}

func (a *COO) Equal(b *COO) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	return slices.Equal(a.Data, b.Data)
}

// Add sets a to a + c*b.
func (a *COO) Add(c complex128, b *COO) {
	if a.rows != b.rows || a.cols != b.cols {
		panic(fmt.Sprintf("wrong dimensions %dx%d %dx%d", a.rows, a.cols, b.rows, b.cols))
	}

	bm := make(map[[2]int]complex128, len(b.Data))
	for _, v := range b.Data {
		bm[[2]int{v.row, v.col}] = v.v
	}
	for i, av := range a.Data {
		yx := [2]int{av.row, av.col}
		a.Data[i].v = av.v + c*bm[yx]
		delete(bm, yx)
	}
	for yx, bv := range bm {
		a.Data = append(a.Data, vRowCol{v: c * bv, row: yx[0], col: yx[1]})
	}

	a.Data = slices.DeleteFunc(a.Data, func(v vRowCol) bool {
		return v.v == 0
	})
	slices.SortFunc(a.Data, rowMajor)
}

// Kron sets a to the Kronecker product a (x) b.
func (a *COO) Kron(b *COO) {
	rows := a.rows * b.rows
	cols := a.cols * b.cols

	prev := a.Data
	a.Data = make([]vRowCol, 0, len(prev)*len(b.Data))
	for _, av := range prev {
		for _, bv := range b.Data {
			ky := av.row*b.rows + bv.row
			kx := av.col*b.cols + bv.col
			a.Data = append(a.Data, vRowCol{v: av.v * bv.v, row: ky, col: kx})
		}
	}
	a.rows, a.cols = rows, cols

	a.Data = slices.DeleteFunc(a.Data, func(v vRowCol) bool {
		return v.v == 0
	})
	slices.SortFunc(a.Data, rowMajor)
}

func (m *COO) Dense() *Dense {
	d := Zeros(m.rows, m.cols)
	for _, v := range m.Data {
		d.Set(v.row, v.col, v.v)
	}
	return d
}

func (m *COO) String() string {
	return m.Dense().String()
}

func (m *Dense) COO() *COO {
	c := COOZeros(m.Rows(), m.Cols())
	for i := range m.Rows() {
		for j := range m.Cols() {
			if v := m.At(i, j); v != 0 {
				c.Data = append(c.Data, vRowCol{v: v, row: i, col: j})
			}
		}
	}
	return c
}

func rowMajor(a, b vRowCol) int {
	if c := cmp.Compare(a.row, b.row); c != 0 {
		return c
	}
	return cmp.Compare(a.col, b.col)
}
