package cla

import "math"

// Goal selects the direction of a one-dimensional search.
type Goal int

const (
	// Maximize searches for the largest value of the objective.
	Maximize Goal = iota
	// Minimize searches for the smallest value of the objective.
	Minimize
)

const (
	goldenRatio     = 0.618033989
	goldenTolerance = 1.0e-9
)

// GoldenSection searches [a, b] for the extremum of a unimodal function f and returns the
// abscissa and the objective value there. The number of iterations is fixed up front from
// tol and the interval width; there is no convergence check. A zero-width interval
// returns a without further evaluation.
func GoldenSection(f func(float64) float64, a, b, tol float64, goal Goal) (float64, float64) {
	if tol <= 0 {
		tol = goldenTolerance
	}
	width := math.Abs(b - a)
	if width == 0 {
		return a, f(a)
	}

	sign := 1.0
	if goal == Maximize {
		sign = -1.0
	}

	iterations := int(math.Ceil(-2.078087 * math.Log(tol/width)))
	r := goldenRatio
	c := 1.0 - r

	x1 := r*a + c*b
	x2 := c*a + r*b
	f1 := sign * f(x1)
	f2 := sign * f(x2)
	for k := 0; k < iterations; k++ {
		if f1 > f2 {
			a = x1
			x1, f1 = x2, f2
			x2 = c*a + r*b
			f2 = sign * f(x2)
		} else {
			b = x2
			x2, f2 = x1, f1
			x1 = r*a + c*b
			f1 = sign * f(x1)
		}
	}

	if f1 < f2 {
		return x1, sign * f1
	}
	return x2, sign * f2
}
