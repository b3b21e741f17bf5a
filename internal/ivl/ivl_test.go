package ivl

import (
	"reflect"
	"testing"
)

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name     string
		a, b     Interval
		expected bool
	}{
		{"disjoint", Interval{0, 3}, Interval{3, 5}, false},
		{"touching other side", Interval{3, 5}, Interval{0, 3}, false},
		{"overlapping", Interval{0, 4}, Interval{2, 6}, true},
		{"contained", Interval{0, 10}, Interval{2, 4}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.expected {
				t.Fatalf("got %v want %v", got, tc.expected)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	in := []Interval{{5, 8}, {0, 3}, {2, 6}, {10, 12}}
	want := []Interval{{0, 8}, {10, 12}}
	got := Merge(in)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSubtract(t *testing.T) {
	base := []Interval{{0, 10}}
	cut := []Interval{{2, 4}, {7, 8}}
	want := []Interval{{0, 2}, {4, 7}, {8, 10}}
	got := Subtract(base, cut)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSubtractFullyCovered(t *testing.T) {
	base := []Interval{{0, 5}}
	cut := []Interval{{0, 5}}
	got := Subtract(base, cut)
	if len(got) != 0 {
		t.Fatalf("expected no remaining interval, got %v", got)
	}
}
