package matching

import (
	"runtime"

	"ownership/internal/simhash"
)

// Policy centralizes the matching thresholds. Both thresholds are inherited
// values without a calibration study behind them; keep them configurable.
type Policy struct {
	// MaxDistance is the largest Hamming distance reported as a similar match.
	MaxDistance int
	// DuplicateConfidence promotes a similar match to a duplicate verdict.
	DuplicateConfidence float64
	// ConfidenceScale is the confidence lost per differing digest bit.
	ConfidenceScale float64
	// BatchWorkers bounds parallel digesting in CheckBatch.
	BatchWorkers int
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MaxDistance:         12,
		DuplicateConfidence: 95,
		ConfidenceScale:     simhash.DefaultScale,
		BatchWorkers:        runtime.GOMAXPROCS(0),
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()

	if p.MaxDistance <= 0 || p.MaxDistance > simhash.Width {
		p.MaxDistance = d.MaxDistance
	}
	if p.DuplicateConfidence <= 0 || p.DuplicateConfidence > 100 {
		p.DuplicateConfidence = d.DuplicateConfidence
	}
	if p.ConfidenceScale <= 0 {
		p.ConfidenceScale = d.ConfidenceScale
	}
	if p.BatchWorkers <= 0 {
		p.BatchWorkers = d.BatchWorkers
	}

	return p
}
