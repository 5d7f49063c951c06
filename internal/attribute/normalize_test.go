package attribute

import "testing"

func TestNormalizeTemperature(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{235, 23.5},   // tenths
		{23, 23},      // already scaled
		{100, 100},    // boundary stays
		{-125, -12.5}, // negative tenths
		{0, 0},
	}

	for _, tt := range tests {
		if got := NormalizeTemperature(tt.in); got != tt.want {
			t.Errorf("NormalizeTemperature(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	// Idempotent on already-normalized values.
	if got := NormalizeTemperature(NormalizeTemperature(235)); got != 23.5 {
		t.Errorf("double normalization = %v, want 23.5", got)
	}
}

func TestNormalizeHumidity(t *testing.T) {
	if got := NormalizeHumidity(655); got != 65.5 {
		t.Errorf("NormalizeHumidity(655) = %v, want 65.5", got)
	}
	if got := NormalizeHumidity(65); got != 65 {
		t.Errorf("NormalizeHumidity(65) = %v, want 65", got)
	}
}

func TestNormalizeFormaldehyde(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{35, 0.035},
		{0, 0},
		{1, 1}, // boundary: values <= 1 are not divided
		{2, 0.002},
	}

	for _, tt := range tests {
		if got := NormalizeFormaldehyde(tt.in); got != tt.want {
			t.Errorf("NormalizeFormaldehyde(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_ByClass(t *testing.T) {
	if got := Normalize(ClassTemperature, 235); got != 23.5 {
		t.Errorf("Normalize(temperature, 235) = %v, want 23.5", got)
	}
	if got := Normalize(ClassFormaldehyde, 35); got != 0.035 {
		t.Errorf("Normalize(formaldehyde, 35) = %v, want 0.035", got)
	}
	// Classes without a conversion pass through.
	if got := Normalize(ClassPM25, 235); got != 235 {
		t.Errorf("Normalize(pm25, 235) = %v, want 235", got)
	}
}

func TestToBool(t *testing.T) {
	tests := []struct {
		in      any
		want    bool
		wantErr bool
	}{
		{true, true, false},
		{false, false, false},
		{"true", true, false},
		{"false", false, false},
		{"TRUE", true, false},
		{"yes", false, true},
		{1, false, true},
	}

	for _, tt := range tests {
		got, err := ToBool(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ToBool(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ToBool(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(1.5), 1.5, true},
		{int(3), 3, true},
		{"23.5", 23.5, true},
		{"abc", 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ToFloat64(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
