package timecode

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		fps     float64
		want    float64
		wantErr bool
	}{
		{"plain seconds", "12.5", 0, 12.5, false},
		{"hms", "1:02:03.5", 0, 3723.5, false},
		{"hmsf", "0:00:01:12", 24, 1.5, false},
		{"hmsf no fps", "0:00:01:12", 0, 0, true},
		{"empty", "", 0, 0, true},
		{"garbage", "abc", 0, 0, true},
		{"negative", "-1", 0, 0, true},
		{"too many components", "1:2:3:4:5", 0, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input, tc.fps)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := got.Seconds() - tc.want; diff > 1e-6 || diff < -1e-6 {
				t.Fatalf("got %v want %v", got.Seconds(), tc.want)
			}
		})
	}
}

func TestArithmeticSaturatesAtZero(t *testing.T) {
	a := FromSeconds(2)
	b := FromSeconds(5)

	d := a.Sub(b)
	if !d.IsZero() {
		t.Fatalf("expected zero duration, got %v", d.Seconds())
	}

	d2 := DurationFromSeconds(3).Minus(DurationFromSeconds(10))
	if !d2.IsZero() {
		t.Fatalf("expected zero duration, got %v", d2.Seconds())
	}
}

func TestDivisionByZeroYieldsZero(t *testing.T) {
	d := DurationFromSeconds(10).Div(0)
	if !d.IsZero() {
		t.Fatalf("expected zero, got %v", d.Seconds())
	}
}

func TestAddNeverNegative(t *testing.T) {
	pos := FromSeconds(1).Add(DurationFromSeconds(2))
	if pos.Seconds() != 3 {
		t.Fatalf("got %v want 3", pos.Seconds())
	}
}

func TestFormatting(t *testing.T) {
	pos := FromSeconds(3723.5)
	if got, want := pos.String(), "01:02:03.500"; got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if got, want := pos.Timecode(24), "01:02:03:12"; got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestFromFrames(t *testing.T) {
	pos := FromFrames(48, 24)
	if pos.Seconds() != 2 {
		t.Fatalf("got %v want 2", pos.Seconds())
	}
	if zero := FromFrames(48, 0); zero.Seconds() != 0 {
		t.Fatalf("expected zero fps to yield zero position")
	}
}

func TestCompare(t *testing.T) {
	a := FromSeconds(1)
	b := FromSeconds(2)
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Fatal("Compare behaved unexpectedly")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Position TimePosition `json:"position"`
		Duration Duration     `json:"duration"`
	}
	in := payload{Position: FromSeconds(1.25), Duration: DurationFromSeconds(2.5)}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out payload
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Position.Equal(in.Position) || out.Duration.Compare(in.Duration) != 0 {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}
