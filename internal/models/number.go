package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Number is a model-supplied numeric field. Models sometimes quote numbers
// or add a unit ("85", "87%"); those decode to their value and anything
// unreadable decodes to zero instead of failing the whole result.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number(f)
		return nil
	}
	*n = 0
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, unit := range []string{"%", "cm", "in"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, unit))
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = Number(f)
	}
	return nil
}

func (n Number) Float64() float64 { return float64(n) }
