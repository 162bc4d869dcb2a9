package cla

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// purge runs both purge steps. It fails when no turning point survives.
func (s *Solver) purge() error {
	s.purgeNumErr(s.cfg.Tolerance)
	s.purgeExcess()
	if len(s.points) == 0 {
		return fmt.Errorf("%w: every turning point violated the constraints", ErrNumerical)
	}
	return nil
}

// purgeNumErr drops turning points whose weights do not sum to one, or violate a bound,
// by more than tol.
func (s *Solver) purgeNumErr(tol float64) {
	kept := s.points[:0]
	for k, tp := range s.points {
		if reason := s.constraintViolation(tp.w, tol); reason != "" {
			s.log.Warn().
				Int("turning_point", k).
				Str("reason", reason).
				Msg("Purging turning point with numerical error")
			continue
		}
		kept = append(kept, tp)
	}
	s.points = kept
}

func (s *Solver) constraintViolation(w []float64, tol float64) string {
	if math.Abs(floats.Sum(w)-1) > tol {
		return "weights do not sum to one"
	}
	for i, v := range w {
		if v-s.lower[i] < -tol {
			return "weight below lower bound"
		}
		if v-s.upper[i] > tol {
			return "weight above upper bound"
		}
	}
	return ""
}

// purgeExcess drops turning points that some later point matches or beats on expected
// return. The highest-return point at index 0 is never dropped.
func (s *Solver) purgeExcess() {
	for i := 1; i < len(s.points)-1; {
		mu := s.portfolioReturn(s.points[i].w)
		dominated := false
		for j := i + 1; j < len(s.points); j++ {
			if mu <= s.portfolioReturn(s.points[j].w) {
				dominated = true
				break
			}
		}
		if !dominated {
			i++
			continue
		}

		s.log.Warn().
			Int("turning_point", i).
			Float64("return", mu).
			Msg("Purging turning point below the convex hull")
		s.points = append(s.points[:i], s.points[i+1:]...)
	}
}
