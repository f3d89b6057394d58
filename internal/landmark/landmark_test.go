package landmark

import (
	"math"
	"testing"
)

func TestPoint3D_Sub(t *testing.T) {
	p := Point3D{X: 0.7, Y: 0.4, Z: 0.1}
	q := Point3D{X: 0.5, Y: 0.8, Z: 0.1}

	got := p.Sub(q)

	const epsilon = 1e-9
	if math.Abs(got.X-0.2) > epsilon || math.Abs(got.Y+0.4) > epsilon || got.Z != 0 {
		t.Errorf("Sub() = %+v, want {0.2 -0.4 0}", got)
	}
}

func TestPoint3D_IsFinite(t *testing.T) {
	tests := []struct {
		name string
		p    Point3D
		want bool
	}{
		{name: "origin", p: Point3D{}, want: true},
		{name: "NaN x", p: Point3D{X: math.NaN()}, want: false},
		{name: "Inf z", p: Point3D{Z: math.Inf(-1)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsFinite(); got != tt.want {
				t.Errorf("IsFinite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		i    int
		want string
	}{
		{Wrist, "wrist"},
		{ThumbTip, "thumb_tip"},
		{PinkyTip, "pinky_tip"},
		{NumLandmarks, "point_21"},
		{-1, "point_-1"},
	}

	for _, tt := range tests {
		if got := Name(tt.i); got != tt.want {
			t.Errorf("Name(%d) = %q, want %q", tt.i, got, tt.want)
		}
	}
}

func TestLetterFixtures(t *testing.T) {
	t.Run("A keeps fingers curled", func(t *testing.T) {
		a := LetterA()
		for _, f := range [][2]int{{IndexMCP, IndexTip}, {MiddleMCP, MiddleTip}, {RingMCP, RingTip}, {PinkyMCP, PinkyTip}} {
			extension := a.Points[f[0]].Y - a.Points[f[1]].Y
			if extension > 0.05 {
				t.Errorf("finger %d appears extended (extension: %f)", f[1], extension)
			}
		}
		if a.Points[ThumbTip].Y >= a.Points[ThumbMCP].Y {
			t.Error("thumb tip should point up along the index finger")
		}
	})

	t.Run("B extends four fingers", func(t *testing.T) {
		b := LetterB()
		for _, f := range [][2]int{{IndexMCP, IndexTip}, {MiddleMCP, MiddleTip}, {RingMCP, RingTip}, {PinkyMCP, PinkyTip}} {
			extension := b.Points[f[0]].Y - b.Points[f[1]].Y
			if extension < 0.2 {
				t.Errorf("finger %d not extended enough (extension: %f)", f[1], extension)
			}
		}
		if b.Points[ThumbTip].X >= b.Points[ThumbMCP].X {
			t.Error("thumb should fold across the palm")
		}
	})

	t.Run("L extends index and thumb only", func(t *testing.T) {
		l := LetterL()
		if ext := l.Points[IndexMCP].Y - l.Points[IndexTip].Y; ext < 0.2 {
			t.Errorf("index not extended (extension: %f)", ext)
		}
		if l.Points[ThumbTip].X-l.Points[ThumbMCP].X < 0.1 {
			t.Error("thumb should point sideways")
		}
		if ext := l.Points[MiddleMCP].Y - l.Points[MiddleTip].Y; ext > 0.05 {
			t.Errorf("middle finger should stay curled (extension: %f)", ext)
		}
	})

	t.Run("poses differ from each other", func(t *testing.T) {
		if LetterA() == LetterB() || LetterA() == LetterL() {
			t.Error("letter fixtures should be distinct")
		}
	})
}
