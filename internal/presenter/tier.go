package presenter

// Tier is the coarse confidence band shown on a result card.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	default:
		return "low"
	}
}

// TierFor bands a confidence percentage. Both boundaries are exclusive on
// the upper tier: 80 is medium, 50 is low.
func TierFor(confidencePercent float64) Tier {
	switch {
	case confidencePercent > 80:
		return TierHigh
	case confidencePercent > 50:
		return TierMedium
	default:
		return TierLow
	}
}
