package physics

// Vector suitability window for malaria transmission.
const (
	malariaTempMinC  = 16.0
	malariaTempMaxC  = 34.0
	malariaRainMinMM = 80.0
)

// MalariaSuitability scores transmission suitability: 100 when both the
// temperature window and the rainfall condition hold, 50 when exactly one
// does, 0 otherwise.
func MalariaSuitability(tempC, rainMM float64) float64 {
	tempOK := tempC >= malariaTempMinC && tempC <= malariaTempMaxC
	rainOK := rainMM > malariaRainMinMM

	switch {
	case tempOK && rainOK:
		return 100
	case tempOK || rainOK:
		return 50
	default:
		return 0
	}
}
