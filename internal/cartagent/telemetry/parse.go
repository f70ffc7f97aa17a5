package telemetry

import (
	"math"
	"strconv"
	"strings"
)

// ParseVoltage parses one telemetry line as a voltage rounded to one decimal.
// Anything that is not a finite non-negative number is rejected.
func ParseVoltage(line string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return math.Round(v*10) / 10, true
}
