package cla

// TurningPoint is a vertex of the efficient frontier in weight space.
type TurningPoint struct {
	Weights map[Asset]float64 `json:"weights"`
	// Lambda is nil for the highest-return point.
	Lambda *float64 `json:"lambda,omitempty"`
	Gamma  *float64 `json:"gamma,omitempty"`
	Free   []Asset  `json:"free"`
}

// Portfolio is a weight vector together with whichever statistics the producing query
// computed. Unpopulated statistics are nil.
type Portfolio struct {
	Weights map[Asset]float64 `json:"weights"`
	Return  *float64          `json:"return,omitempty"`
	Risk    *float64          `json:"risk,omitempty"`
	Sharpe  *float64          `json:"sharpe,omitempty"`
}

// turningPoint is the stored form: weights indexed by universe position.
type turningPoint struct {
	w      []float64
	lambda *float64
	gamma  *float64
	free   []int
}

func floatPtr(v float64) *float64 {
	return &v
}
