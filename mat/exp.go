package mat

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Exp returns exp(i t h).
//
// The complex exponential is evaluated as the real exponential of the block embedding
//
//	z = x + iy  ->  [[x, -y], [y, x]],
//
// which preserves sums and products, so the top-left and bottom-left blocks of the result
// are the real and imaginary parts of exp(i t h).
func Exp(h *Dense, t float64) *Dense {
	if !h.IsSquare() {
		panic(fmt.Sprintf("not square %dx%d", h.Rows(), h.Cols()))
	}
	var e mat.Dense
	e.Exp(embed(h, complex(0, t)))
	return unembed(&e, h.Rows())
}

// ExpEigen returns exp(i t h) for a Hermitian h via the eigendecomposition of its symmetric embedding s.
// Since the embedding of i is j = [[0, -1], [1, 0]], exp(i t h) embeds as cos(t s) + j sin(t s).
func ExpEigen(h *Dense, t float64) (*Dense, error) {
	if !h.IsSquare() {
		return nil, errors.Errorf("not square %dx%d", h.Rows(), h.Cols())
	}
	n := h.Rows()
	s := embed(h, 1)
	sym := mat.NewSymDense(2*n, s.RawMatrix().Data)
	if !mat.EqualApprox(sym, s, 1e-9) {
		return nil, errors.Errorf("not hermitian")
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, errors.Errorf("eig.Factorize failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	cos := spectral(&vecs, vals, func(v float64) float64 { return math.Cos(t * v) })
	sin := spectral(&vecs, vals, func(v float64) float64 { return math.Sin(t * v) })

	u := Zeros(n, n)
	for i := range n {
		for j := range n {
			re := cos.At(i, j) - sin.At(i+n, j)
			im := cos.At(i+n, j) + sin.At(i, j)
			u.Set(i, j, complex(re, im))
		}
	}
	return u, nil
}

// spectral returns v diag(f(vals)) v^T.
func spectral(vecs *mat.Dense, vals []float64, f func(float64) float64) *mat.Dense {
	var w mat.Dense
	w.CloneFrom(vecs)
	rows, _ := w.Dims()
	for k, v := range vals {
		fv := f(v)
		for i := range rows {
			w.Set(i, k, w.At(i, k)*fv)
		}
	}
	var out mat.Dense
	out.Mul(&w, vecs.T())
	return &out
}

// embed returns the real embedding of c*z.
func embed(z *Dense, c complex128) *mat.Dense {
	rows, cols := z.Rows(), z.Cols()
	e := mat.NewDense(2*rows, 2*cols, nil)
	for i := range rows {
		for j := range cols {
			v := c * z.At(i, j)
			x, y := real(v), imag(v)
			e.Set(i, j, x)
			e.Set(i, j+cols, -y)
			e.Set(i+rows, j, y)
			e.Set(i+rows, j+cols, x)
		}
	}
	return e
}

func unembed(e *mat.Dense, n int) *Dense {
	z := Zeros(n, n)
	for i := range n {
		for j := range n {
			z.Set(i, j, complex(e.At(i, j), e.At(i+n, j)))
		}
	}
	return z
}
