package crosstrack

import (
	"math"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MaxConditionNumber bounds the 2-norm condition number of the scaled Vandermonde matrix.
const MaxConditionNumber = 1e8

// ErrIllConditionedFit is returned when the samples cannot support a reliable fit.
var ErrIllConditionedFit = errors.New("ill-conditioned polynomial fit")

// Polynomial is a least-squares fit in a scaled abscissa. Coefficients are in ascending order
// of power of x/Scale.
type Polynomial struct {
	Coefficients []float64
	Scale        float64
}

// Eval evaluates the polynomial at x using Horner's method.
func (p Polynomial) Eval(x float64) float64 {
	u := x / p.Scale
	var y float64
	for i := len(p.Coefficients) - 1; i >= 0; i-- {
		y = y*u + p.Coefficients[i]
	}
	return y
}

// FitPolynomial fits ys = f(xs) with a polynomial of the given degree by least squares, solving
// through a QR factorization. The abscissae are scaled into [-1, 1] before the Vandermonde
// matrix is built.
func FitPolynomial(xs, ys []float64, degree int) (Polynomial, error) {
	if len(xs) != len(ys) {
		return Polynomial{}, errors.Errorf("sample length mismatch: %d abscissae, %d ordinates", len(xs), len(ys))
	}
	if degree < 0 {
		return Polynomial{}, errors.Errorf("degree must be non-negative, got %d", degree)
	}
	terms := degree + 1

	var scale float64
	for _, x := range xs {
		scale = math.Max(scale, math.Abs(x))
	}
	if scale == 0 {
		scale = 1
	}
	if n := distinct(xs, scale*1e-9); n < terms {
		return Polynomial{}, errors.Wrapf(ErrIllConditionedFit, "%d distinct abscissae for degree %d", n, degree)
	}

	a := mat.NewDense(len(xs), terms, nil)
	for i, x := range xs {
		u, pow := x/scale, 1.0
		for j := 0; j < terms; j++ {
			a.Set(i, j, pow)
			pow *= u
		}
	}
	if c := mat.Cond(a, 2); c > MaxConditionNumber || math.IsNaN(c) {
		return Polynomial{}, errors.Wrapf(ErrIllConditionedFit, "condition number %.3g", c)
	}

	var qr mat.QR
	qr.Factorize(a)
	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, mat.NewVecDense(len(ys), slices.Clone(ys))); err != nil {
		return Polynomial{}, errors.Wrap(ErrIllConditionedFit, err.Error())
	}
	return Polynomial{Coefficients: slices.Clone(coef.RawVector().Data), Scale: scale}, nil
}

func distinct(xs []float64, tol float64) int {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	n := 0
	for i, x := range sorted {
		if i == 0 || x-sorted[i-1] > tol {
			n++
		}
	}
	return n
}
