package bench

// Verdict classifies a change against a baseline.
type Verdict int

const (
	NoChange Verdict = iota
	Improved
	Regressed
)

func (v Verdict) String() string {
	switch v {
	case Improved:
		return "improved"
	case Regressed:
		return "regressed"
	default:
		return "no change"
	}
}

// Change describes the relative difference of a result to its baseline.
type Change struct {
	Baseline Estimates `json:"baseline"`
	// Ratio is current/baseline - 1 of the means.
	Ratio float64 `json:"ratio"`
	// RatioCI bounds the ratio using both confidence intervals.
	RatioCI Interval `json:"ratioCi"`
	Verdict Verdict  `json:"verdict"`
}

// Compare relates cur to base. A change is only reported when the mean
// confidence intervals are disjoint and the relative difference exceeds
// noise.
func Compare(cur, base Estimates, noise float64) Change {
	c := Change{Baseline: base}
	if base.Mean <= 0 {
		return c
	}

	c.Ratio = cur.Mean/base.Mean - 1
	if base.MeanCI.Lo > 0 && base.MeanCI.Hi > 0 {
		c.RatioCI = Interval{
			Lo: cur.MeanCI.Lo/base.MeanCI.Hi - 1,
			Hi: cur.MeanCI.Hi/base.MeanCI.Lo - 1,
		}
	}

	magnitude := c.Ratio
	if magnitude < 0 {
		magnitude = -magnitude
	}
	switch {
	case cur.MeanCI.Overlaps(base.MeanCI), magnitude <= noise:
		c.Verdict = NoChange
	case c.Ratio < 0:
		c.Verdict = Improved
	default:
		c.Verdict = Regressed
	}
	return c
}
