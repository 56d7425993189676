package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		system   System
		expected float64
	}{
		{"10 m/s to mph", 10.0, Customary, 22.3694},
		{"10 m/s to kph", 10.0, Metric, 36.0},
		{"unset system passes through", 10.0, NotSet, 10.0},
		{"0 m/s to mph", 0.0, Customary, 0.0},
		{"running speed 3.33 m/s to kph", 3.3333, Metric, 12.0},
		{"walking speed 1.4 m/s to mph", 1.4, Customary, 3.13172},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSpeed(tt.speedMPS, tt.system)
			if math.Abs(result-tt.expected) > 0.01 {
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.speedMPS, tt.system, result, tt.expected)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    System
		wantErr bool
	}{
		{"metric", "metric", Metric, false},
		{"customary", "customary", Customary, false},
		{"case sensitive", "Metric", NotSet, true},
		{"empty string", "", NotSet, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !tt.wantErr && got.String() != tt.input {
				t.Errorf("String() = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestPaceFromSpeed(t *testing.T) {
	// 1000 m in 300 s is a 5:00 min/km pace.
	pace, ok := PaceFromSpeed(1000.0/300.0, Metric)
	if !ok || math.Abs(pace-5.0) > 1e-9 {
		t.Errorf("PaceFromSpeed metric = %v (%v), want 5.0", pace, ok)
	}

	pace, ok = PaceFromSpeed(1000.0/300.0, Customary)
	if !ok || math.Abs(pace-8.04672) > 1e-4 {
		t.Errorf("PaceFromSpeed customary = %v (%v), want 8.04672", pace, ok)
	}

	if _, ok := PaceFromSpeed(0, Metric); ok {
		t.Error("PaceFromSpeed(0) should have no pace")
	}
}

func TestRoundTripConversions(t *testing.T) {
	if got := MilesToKilometers(KilometersToMiles(42.195)); math.Abs(got-42.195) > 1e-9 {
		t.Errorf("km round trip = %v", got)
	}
	if got := FeetToMeters(MetersToFeet(100)); math.Abs(got-100) > 1e-9 {
		t.Errorf("m round trip = %v", got)
	}
	if got := PoundsToKilograms(KilogramsToPounds(70)); math.Abs(got-70) > 1e-9 {
		t.Errorf("kg round trip = %v", got)
	}
}
