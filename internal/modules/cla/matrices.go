package cla

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// reducedSystem holds the free-set quantities shared by the λ closed form and the weight
// reconstruction:
//
//	invOnes     = Σ_F⁻¹·1            onesInvOnes = 1ᵗ·Σ_F⁻¹·1
//	invMean     = Σ_F⁻¹·μ_F          onesInvMean = 1ᵗ·Σ_F⁻¹·μ_F
//	offset      = Σ_F⁻¹·Σ_FB·w_B     offsetSum   = 1ᵗ·offset
//	boundSum    = 1ᵗ·w_B
//
// offset is nil when every asset is free.
type reducedSystem struct {
	free    []int
	bounded []int

	covarFInv *mat.Dense
	meanF     *mat.VecDense

	invOnes     *mat.VecDense
	invMean     *mat.VecDense
	onesInvOnes float64
	onesInvMean float64

	offset    *mat.VecDense
	offsetSum float64
	boundSum  float64
}

// reduce builds the reduced system for the free set. Bounded weights are read from w.
func (s *Solver) reduce(free []int, w []float64) (*reducedSystem, error) {
	nf := len(free)
	bounded := s.boundedSet(free)

	covarF := mat.NewDense(nf, nf, nil)
	meanF := mat.NewVecDense(nf, nil)
	for r, i := range free {
		meanF.SetVec(r, s.mean.AtVec(i))
		for c, j := range free {
			covarF.Set(r, c, s.covar.At(i, j))
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(covarF); err != nil {
		return nil, fmt.Errorf("%w: free set of %d assets: %v", ErrSingularMatrix, nf, err)
	}

	rs := &reducedSystem{
		free:      free,
		bounded:   bounded,
		covarFInv: &inv,
	}

	ones := mat.NewVecDense(nf, nil)
	for r := 0; r < nf; r++ {
		ones.SetVec(r, 1)
	}
	rs.invOnes = mat.NewVecDense(nf, nil)
	rs.invOnes.MulVec(&inv, ones)
	rs.onesInvOnes = floats.Sum(rs.invOnes.RawVector().Data)
	rs.setMean(meanF)

	if len(bounded) > 0 {
		covarFB := mat.NewDense(nf, len(bounded), nil)
		wB := mat.NewVecDense(len(bounded), nil)
		for c, j := range bounded {
			wB.SetVec(c, w[j])
			for r, i := range free {
				covarFB.Set(r, c, s.covar.At(i, j))
			}
		}
		rs.boundSum = floats.Sum(wB.RawVector().Data)

		var fb mat.VecDense
		fb.MulVec(covarFB, wB)
		rs.offset = mat.NewVecDense(nf, nil)
		rs.offset.MulVec(&inv, &fb)
		rs.offsetSum = floats.Sum(rs.offset.RawVector().Data)
	}

	return rs, nil
}

// setMean replaces the reduced mean vector and refreshes the quantities derived from it.
func (rs *reducedSystem) setMean(meanF *mat.VecDense) {
	rs.meanF = meanF
	rs.invMean = mat.NewVecDense(meanF.Len(), nil)
	rs.invMean.MulVec(rs.covarFInv, meanF)
	rs.onesInvMean = floats.Sum(rs.invMean.RawVector().Data)
}

// zeroMean turns the system into the minimum-variance problem.
func (rs *reducedSystem) zeroMean() {
	rs.setMean(mat.NewVecDense(len(rs.free), nil))
}

// lambda evaluates the λ closed form for the asset at position i of the free set against
// the boundary pair [lower, upper]. A single boundary value is passed as lower == upper.
// ok is false when the coefficient c vanishes: the asset is not a candidate this round.
func (rs *reducedSystem) lambda(i int, lower, upper float64) (lambda, bi float64, ok bool) {
	c := -rs.onesInvOnes*rs.invMean.AtVec(i) + rs.onesInvMean*rs.invOnes.AtVec(i)
	if c == 0 {
		return 0, 0, false
	}

	bi = computeBi(c, lower, upper)
	if rs.offset == nil {
		return (rs.invOnes.AtVec(i) - rs.onesInvOnes*bi) / c, bi, true
	}

	return ((1-rs.boundSum+rs.offsetSum)*rs.invOnes.AtVec(i) - rs.onesInvOnes*(bi+rs.offset.AtVec(i))) / c, bi, true
}

// computeBi picks the boundary a free weight moves to: the upper bound when c > 0.
func computeBi(c, lower, upper float64) float64 {
	if c > 0 {
		return upper
	}
	return lower
}

// weights reconstructs the free weights and γ for the given λ.
func (rs *reducedSystem) weights(lambda float64) (*mat.VecDense, float64) {
	g1 := rs.onesInvMean
	g2 := rs.onesInvOnes

	gamma := -lambda*g1/g2 + 1/g2
	if rs.offset != nil {
		gamma = -lambda*g1/g2 + (1-rs.boundSum+rs.offsetSum)/g2
	}

	wF := mat.NewVecDense(len(rs.free), nil)
	wF.AddScaledVec(wF, gamma, rs.invOnes)
	wF.AddScaledVec(wF, lambda, rs.invMean)
	if rs.offset != nil {
		wF.SubVec(wF, rs.offset)
	}

	return wF, gamma
}

// boundedSet returns the complement of free in universe order.
func (s *Solver) boundedSet(free []int) []int {
	inFree := make([]bool, len(s.assets))
	for _, i := range free {
		inFree[i] = true
	}
	bounded := make([]int, 0, len(s.assets)-len(free))
	for i := range s.assets {
		if !inFree[i] {
			bounded = append(bounded, i)
		}
	}
	return bounded
}
