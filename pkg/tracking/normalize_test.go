package tracking

import (
	"math"
	"testing"
)

func TestNormalize_Centre(t *testing.T) {
	n := NewNormalizer(800, 600, DefaultConfig())

	got := n.Normalize(OrientationSample{X: 0, Y: 0})

	// x: (0+0.1)*1000*3 = 300 -> 600-300 = 300 (screen y)
	// y: (0+0.2)*1000*2 = 400 -> 800-400 = 400 (screen x)
	want := PixelSample{X: 400, Y: 300}
	if got != want {
		t.Errorf("Normalize(0,0) = %+v, want %+v", got, want)
	}
}

func TestNormalize_Extremes(t *testing.T) {
	n := NewNormalizer(800, 600, DefaultConfig())

	tests := []struct {
		name string
		in   OrientationSample
		want PixelSample
	}{
		{"max nod", OrientationSample{X: 0.1}, PixelSample{X: 400, Y: 0}},
		{"min nod", OrientationSample{X: -0.1}, PixelSample{X: 400, Y: 600}},
		{"max shake", OrientationSample{Y: 0.2}, PixelSample{X: 0, Y: 300}},
		{"min shake", OrientationSample{Y: -0.2}, PixelSample{X: 800, Y: 300}},
		{"bottom right", OrientationSample{X: -0.1, Y: -0.2}, PixelSample{X: 800, Y: 600}},
		{"top left", OrientationSample{X: 0.1, Y: 0.2}, PixelSample{X: 0, Y: 0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := n.Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_ClampsOutOfRange(t *testing.T) {
	n := NewNormalizer(800, 600, DefaultConfig())

	tests := []struct {
		name    string
		over    OrientationSample
		atLimit OrientationSample
	}{
		{"x above", OrientationSample{X: 5.0}, OrientationSample{X: 0.1}},
		{"x below", OrientationSample{X: -5.0}, OrientationSample{X: -0.1}},
		{"y above", OrientationSample{Y: 0.9}, OrientationSample{Y: 0.2}},
		{"y below", OrientationSample{Y: -0.9}, OrientationSample{Y: -0.2}},
		{"both", OrientationSample{X: 3, Y: -3}, OrientationSample{X: 0.1, Y: -0.2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := n.Normalize(tc.over)
			want := n.Normalize(tc.atLimit)
			if got != want {
				t.Errorf("Normalize(%+v) = %+v, want clamp-bound result %+v", tc.over, got, want)
			}
		})
	}
}

func TestNormalize_Truncates(t *testing.T) {
	n := NewNormalizer(800, 600, DefaultConfig())

	// (0.0498+0.1)*3000 = 449.4 -> 600-449.4 = 150.6, truncated not rounded
	got := n.Normalize(OrientationSample{X: 0.0498})
	if got.Y != 150 {
		t.Errorf("Normalize y = %v, want 150", got.Y)
	}
	if got.Y != math.Trunc(got.Y) || got.X != math.Trunc(got.X) {
		t.Errorf("Normalize returned non-integral pixels %+v", got)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	n1 := NewNormalizer(1024, 768, DefaultConfig())
	n2 := NewNormalizer(1024, 768, DefaultConfig())

	for _, s := range []OrientationSample{{0.03, -0.11}, {-0.07, 0.19}, {0.5, 0.5}} {
		a := n1.Normalize(s)
		b := n1.Normalize(s)
		c := n2.Normalize(s)
		if a != b || a != c {
			t.Errorf("Normalize(%+v) not deterministic: %+v %+v %+v", s, a, b, c)
		}
	}
}

func TestNormalize_ContainerSize(t *testing.T) {
	n := NewNormalizer(1920, 1080, DefaultConfig())

	got := n.Normalize(OrientationSample{})
	want := PixelSample{X: 960, Y: 540}
	if got != want {
		t.Errorf("Normalize(0,0) in 1920x1080 = %+v, want %+v", got, want)
	}

	w, h := n.Size()
	if w != 1920 || h != 1080 {
		t.Errorf("Size() = %vx%v, want 1920x1080", w, h)
	}
}

func TestNormalize_NaNClampsHigh(t *testing.T) {
	n := NewNormalizer(800, 600, DefaultConfig())

	got := n.Normalize(OrientationSample{X: math.NaN(), Y: math.NaN()})
	want := n.Normalize(OrientationSample{X: 0.1, Y: 0.2})
	if got != want {
		t.Errorf("Normalize(NaN) = %+v, want %+v", got, want)
	}
}
