package gwo

// Schedule computes the decay parameter a for iteration current of total.
// It must be a pure function of its arguments.
type Schedule func(total, current int) float64

// LinearDecay is the default schedule: a = 2 * (1 - current/total).
// It starts at 2 (exploration) and shrinks toward 0 (exploitation).
func LinearDecay(total, current int) float64 {
	if total <= 0 {
		return 0
	}
	return 2 * (1 - float64(current)/float64(total))
}
