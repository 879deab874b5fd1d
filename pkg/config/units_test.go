package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"10s", 10 * time.Second, false},
		{"1.5h", 90 * time.Minute, false},
		{"1d", 24 * time.Hour, false},
		{"2d2h", 50 * time.Hour, false},
		{"250ms", 250 * time.Millisecond, false},
		{"", 0, false},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		wantErr  bool
	}{
		{"100m", 100, false},
		{"1.5km", 1500, false},
		{"1nm", 1852, false},
		{"10ft", 3.048, false},
		{"500", 500, false},
		{"10x", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDistance(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDistance(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDistance(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestUnitsYAMLRoundTrip(t *testing.T) {
	type unitsDoc struct {
		Timeout Duration `yaml:"timeout"`
		Padding Distance `yaml:"padding"`
		Plain   Distance `yaml:"plain"`
	}

	var doc unitsDoc
	if err := yaml.Unmarshal([]byte("timeout: 10s\npadding: 2km\nplain: 750\n"), &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if doc.Timeout.Std() != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", doc.Timeout.Std())
	}
	if doc.Padding.Meters() != 2000 {
		t.Errorf("Padding = %v, want 2000", doc.Padding)
	}
	if doc.Plain != 750 {
		t.Errorf("Plain = %v, want 750", doc.Plain)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := "timeout: 10s\npadding: 2km\nplain: 750m\n"
	if string(out) != want {
		t.Errorf("Marshal = %q, want %q", out, want)
	}
}
