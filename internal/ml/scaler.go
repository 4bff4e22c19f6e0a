package ml

import "math"

// Scaler standardizes features to zero mean and unit variance. Fitted
// parameters are stored per column so a model trained on scaled data can
// score new rows consistently after a reload.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// NewScaler creates an unfitted scaler.
func NewScaler() *Scaler {
	return &Scaler{}
}

// Fit computes per-column mean and standard deviation. Zero-variance
// columns get std 1 so Transform leaves them centered but unscaled.
func (s *Scaler) Fit(X [][]float64) {
	if len(X) == 0 {
		s.Mean, s.Std = nil, nil
		return
	}
	cols := len(X[0])
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)

	for _, row := range X {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	n := float64(len(X))
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, row := range X {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
}

// Transform returns a scaled copy of X.
func (s *Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.TransformRow(row)
	}
	return out
}

// TransformRow returns a scaled copy of a single row. Columns beyond the
// fitted width pass through unchanged.
func (s *Scaler) TransformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if j < len(s.Mean) {
			out[j] = (v - s.Mean[j]) / s.Std[j]
		} else {
			out[j] = v
		}
	}
	return out
}

// FitTransform fits the scaler and returns the scaled data.
func (s *Scaler) FitTransform(X [][]float64) [][]float64 {
	s.Fit(X)
	return s.Transform(X)
}
