package testing

// TwoAssetProblemJSON is an uncorrelated two-asset request body. Its minimum-variance
// portfolio holds 9/13 of A1 and its maximum Sharpe ratio is 5/6.
const TwoAssetProblemJSON = `{
  "assets": ["A1", "A2"],
  "mean": {"A1": 0.1, "A2": 0.2},
  "covariance": {
    "A1": {"A1": 0.04, "A2": 0},
    "A2": {"A1": 0, "A2": 0.09}
  }
}`

// InfeasibleProblemJSON has lower bounds summing above one.
const InfeasibleProblemJSON = `{
  "assets": ["A1", "A2"],
  "mean": {"A1": 0.1, "A2": 0.2},
  "covariance": {
    "A1": {"A1": 0.04, "A2": 0},
    "A2": {"A1": 0, "A2": 0.09}
  },
  "lower": {"A1": 0.6, "A2": 0.6}
}`

// SingularProblemJSON has perfectly correlated assets of equal variance.
const SingularProblemJSON = `{
  "assets": ["A", "B"],
  "mean": {"A": 0.1, "B": 0.2},
  "covariance": {
    "A": {"A": 0.04, "B": 0.04},
    "B": {"A": 0.04, "B": 0.04}
  }
}`
