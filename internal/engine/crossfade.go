package engine

// smoother is the one-pole control filter shared by the model blend and the
// IR mix: s = 0.001*target + 0.999*s, advanced once per sample. It
// converges monotonically towards the target and never overshoots.
type smoother struct {
	state float64
}

func (s *smoother) next(target float64) float64 {
	s.state = 0.001*target + 0.999*s.state
	return s.state
}

// value returns the current smoothed level without advancing.
func (s *smoother) value() float64 { return s.state }

// crossfade writes the smoothed mix of a and b into out, advancing sm once
// per sample towards target. out may alias a or b.
func crossfade(out, a, b []float64, target float64, sm *smoother) {
	for i := range out {
		f := sm.next(target)
		out[i] = a[i]*(1.0-f) + b[i]*f
	}
}
