package components

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the size distribution of a component set.
type Summary struct {
	Count       int     `yaml:"count"`
	TotalPower  int     `yaml:"totalPower"`
	MinPower    int     `yaml:"minPower"`
	MaxPower    int     `yaml:"maxPower"`
	MeanPower   float64 `yaml:"meanPower"`
	StdDevPower float64 `yaml:"stdDevPower"`
	MedianPower float64 `yaml:"medianPower"`

	// MeanFill is the average ratio of power to bounding box area.
	MeanFill float64 `yaml:"meanFill"`
}

// Summarize computes the power statistics of set. An empty set yields a
// zero Summary.
func Summarize(set []*Component) Summary {
	var s Summary
	if len(set) == 0 {
		return s
	}

	powers := make([]float64, len(set))
	fills := make([]float64, len(set))
	s.MinPower = set[0].Power()
	for i, c := range set {
		p := c.Power()
		powers[i] = float64(p)
		b := c.Bounds()
		fills[i] = float64(p) / float64(b.Dx()*b.Dy())

		s.TotalPower += p
		if p < s.MinPower {
			s.MinPower = p
		}
		if p > s.MaxPower {
			s.MaxPower = p
		}
	}

	s.Count = len(set)
	s.MeanPower = stat.Mean(powers, nil)
	if len(powers) > 1 {
		s.StdDevPower = stat.StdDev(powers, nil)
	}
	sort.Float64s(powers)
	s.MedianPower = stat.Quantile(0.5, stat.Empirical, powers, nil)
	s.MeanFill = stat.Mean(fills, nil)
	return s
}
