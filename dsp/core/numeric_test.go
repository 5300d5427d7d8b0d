package core

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{name: "inside", value: 0.5, min: 0, max: 1, expected: 0.5},
		{name: "below", value: -1, min: 0, max: 1, expected: 0},
		{name: "above", value: 2, min: 0, max: 1, expected: 1},
		{name: "swapped", value: 2, min: 1, max: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.value, tt.min, tt.max)
			if got != tt.expected {
				t.Fatalf("Clamp() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	if got := Clamp01(1.5); got != 1 {
		t.Fatalf("Clamp01(1.5) = %v, want 1", got)
	}
	if got := Clamp01(-0.1); got != 0 {
		t.Fatalf("Clamp01(-0.1) = %v, want 0", got)
	}
	if got := Clamp01(math.NaN()); got != 0 {
		t.Fatalf("Clamp01(NaN) = %v, want 0", got)
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(1) {
		t.Fatal("1 should be finite")
	}
	if IsFinite(math.NaN()) || IsFinite(math.Inf(1)) || IsFinite(math.Inf(-1)) {
		t.Fatal("NaN and Inf must not be finite")
	}
}

func TestNearlyEqual(t *testing.T) {
	if !NearlyEqual(1.0, 1.0+1e-13, 1e-12) {
		t.Fatal("expected values to be nearly equal")
	}
	if NearlyEqual(1.0, 1.1, 1e-3) {
		t.Fatal("expected values to differ")
	}
}

func TestFlushDenormals(t *testing.T) {
	if got := FlushDenormals(1e-310); got != 0 {
		t.Fatalf("FlushDenormals(1e-310) = %v, want 0", got)
	}
	if got := FlushDenormals(-1e-31); got != 0 {
		t.Fatalf("FlushDenormals(-1e-31) = %v, want 0", got)
	}
	if got := FlushDenormals(1e-6); got != 1e-6 {
		t.Fatalf("FlushDenormals(1e-6) = %v, want unchanged", got)
	}
}

func TestDBConversions(t *testing.T) {
	if db := LinearToDB(0.5); !NearlyEqual(db, -6.020599913279624, 1e-12) {
		t.Fatalf("LinearToDB(0.5) = %v, want -6.0206", db)
	}
	if db := LinearToDB(1); db != 0 {
		t.Fatalf("LinearToDB(1) = %v, want 0", db)
	}
	if !math.IsInf(LinearToDB(0), -1) {
		t.Fatal("expected -Inf for zero")
	}
	if !math.IsNaN(LinearToDB(-1)) {
		t.Fatal("expected NaN for negative amplitude")
	}
}
