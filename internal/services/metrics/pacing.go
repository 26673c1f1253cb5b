package metrics

// PacingBand classifies a speaking rate.
type PacingBand string

const (
	PacingTooSlow      PacingBand = "too slow"
	PacingSlow         PacingBand = "slow but acceptable"
	PacingIdeal        PacingBand = "ideal"
	PacingSlightlyFast PacingBand = "slightly fast"
	PacingTooFast      PacingBand = "too fast"
)

var pacingAdvice = map[PacingBand]string{
	PacingTooSlow:      "Your pace is too slow. Pick up the tempo to keep your audience engaged.",
	PacingSlow:         "Your pace is a little slow but acceptable. Tighten transitions between points.",
	PacingIdeal:        "Your pace is in the ideal range for clear, engaging delivery.",
	PacingSlightlyFast: "Your pace is slightly fast. Slow down on key points so they land.",
	PacingTooFast:      "Your pace is too fast. Slow down so listeners can keep up.",
}

// AssessPacing maps words per minute onto the fixed bands:
// below 100, 100 to under 120, 120 to 160, above 160 to 180, above 180.
func AssessPacing(wpm float64) PacingBand {
	switch {
	case wpm < 100:
		return PacingTooSlow
	case wpm < 120:
		return PacingSlow
	case wpm <= 160:
		return PacingIdeal
	case wpm <= 180:
		return PacingSlightlyFast
	default:
		return PacingTooFast
	}
}

// Advice returns the fixed advisory sentence for the band.
func (b PacingBand) Advice() string {
	return pacingAdvice[b]
}
