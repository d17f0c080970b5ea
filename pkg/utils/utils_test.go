package utils

import (
	"slices"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		in     float64
		places int
		want   float64
	}{
		{30.0, 1, 30.0},
		{33.333333, 1, 33.3},
		{0.125, 2, 0.12},
		{30.25, 1, 30.2},
		{30.35, 1, 30.4},
		{2.5, 0, 2},
		{1.005, 0, 1},
		{-2.56, 1, -2.6},
	}
	for _, tt := range tests {
		if got := Round(tt.in, tt.places); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.in, tt.places, got, tt.want)
		}
	}
}

func TestCounterDelta(t *testing.T) {
	if got := CounterDelta[uint64](1000, 500); got != 0 {
		t.Errorf("expected counter reset to clamp to 0, got %d", got)
	}
	if got := CounterDelta[uint64](500, 1500); got != 1000 {
		t.Errorf("expected 1000, got %d", got)
	}
}

func TestBytesToGB(t *testing.T) {
	if got := BytesToGB[uint64](3 << 30); got != 3 {
		t.Errorf("expected 3GB, got %v", got)
	}
}

func TestMapValuesToSlice(t *testing.T) {
	got := MapValuesToSlice(map[string]int{"a": 1, "b": 2, "c": 3})
	slices.Sort(got)
	if !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("unexpected values %v", got)
	}
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if a == b || len(a) != 36 {
		t.Errorf("expected two distinct uuids, got %q and %q", a, b)
	}
}
