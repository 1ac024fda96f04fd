package domain

// Pressure is the weighted sum of flux over every body in ps that has a
// static weight. Untracked bodies are skipped.
func Pressure(ps PositionSet) float64 {
	return PressureWithWeights(ps, bodyWeights)
}

// PressureWithWeights is Pressure with a caller-supplied weight table.
func PressureWithWeights(ps PositionSet, weights Weights) float64 {
	var p float64
	for _, pos := range ps {
		w, ok := weights[pos.Body]
		if !ok {
			continue
		}
		p += w * Flux(pos.Longitude)
	}
	return p
}
