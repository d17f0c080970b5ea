package utils

import (
	"math"

	"github.com/hashicorp/go-uuid"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/exp/constraints"
)

var Json = jsoniter.ConfigCompatibleWithStandardLibrary

const bytesPerGB = 1 << 30

func MapValuesToSlice[Map ~map[K]V, K comparable, V any](m Map) []V {
	s := make([]V, 0, len(m))
	for _, v := range m {
		s = append(s, v)
	}
	return s
}

// Round rounds v half to even to the given number of decimal places.
func Round[T constraints.Float](v T, places int) T {
	p := math.Pow10(places)
	return T(math.RoundToEven(float64(v)*p) / p)
}

// CounterDelta returns last-first for monotonic counters, or zero when the
// counter went backwards (reboot or wraparound).
func CounterDelta[T constraints.Integer](first, last T) T {
	if last < first {
		return 0
	}
	return last - first
}

func BytesToGB[T constraints.Integer](b T) float64 {
	return float64(b) / bytesPerGB
}

func NewRequestID() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "unknown"
	}
	return id
}
