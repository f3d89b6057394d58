package feature

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ayusman/sign2me/internal/landmark"
)

const epsilon = 1e-9

func TestNormalize(t *testing.T) {
	t.Run("reference point becomes origin", func(t *testing.T) {
		frame := FromHand(landmark.LetterB())

		v, err := Normalize(frame)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}

		if v.Offsets[landmark.Wrist] != (landmark.Point3D{}) {
			t.Errorf("wrist offset = %+v, want zero", v.Offsets[landmark.Wrist])
		}
	})

	t.Run("keeps every landmark", func(t *testing.T) {
		frame := FromHand(landmark.LetterA())

		v, err := Normalize(frame)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if v.Len() != landmark.NumLandmarks {
			t.Errorf("Len() = %d, want %d", v.Len(), landmark.NumLandmarks)
		}
	})

	t.Run("offsets are relative to reference", func(t *testing.T) {
		hand := landmark.LetterL()
		v, err := Normalize(FromHand(hand))
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}

		wrist := hand.Points[landmark.Wrist]
		for i, p := range hand.Points {
			got := v.Offsets[i]
			if math.Abs(got.X-(p.X-wrist.X)) > epsilon ||
				math.Abs(got.Y-(p.Y-wrist.Y)) > epsilon ||
				math.Abs(got.Z-(p.Z-wrist.Z)) > epsilon {
				t.Errorf("landmark %d offset = %+v", i, got)
			}
		}
	})

	t.Run("translation invariant", func(t *testing.T) {
		hand := landmark.LetterB()
		shifted := hand
		for i := range shifted.Points {
			shifted.Points[i].X += 0.2
			shifted.Points[i].Y -= 0.15
		}

		a, errA := Normalize(FromHand(hand))
		b, errB := Normalize(FromHand(shifted))
		if errA != nil || errB != nil {
			t.Fatalf("Normalize() errors = %v, %v", errA, errB)
		}

		for i := range a.Offsets {
			if math.Abs(a.Offsets[i].X-b.Offsets[i].X) > epsilon || math.Abs(a.Offsets[i].Y-b.Offsets[i].Y) > epsilon {
				t.Errorf("landmark %d differs after translation: %+v vs %+v", i, a.Offsets[i], b.Offsets[i])
			}
		}
	})

	t.Run("non-wrist reference", func(t *testing.T) {
		frame := Frame{
			Points: []landmark.Point3D{
				{X: 1, Y: 1},
				{X: 3, Y: 5},
			},
			Reference: 1,
		}

		v, err := Normalize(frame)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if v.Offsets[1] != (landmark.Point3D{}) {
			t.Errorf("reference offset = %+v, want zero", v.Offsets[1])
		}
		if v.Offsets[0] != (landmark.Point3D{X: -2, Y: -4}) {
			t.Errorf("offset[0] = %+v, want {-2 -4 0}", v.Offsets[0])
		}
	})
}

func TestNormalize_NoFeature(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantMsg string
	}{
		{name: "empty frame", frame: Frame{}, wantMsg: "no feature"},
		{name: "reference out of range", frame: Frame{Points: []landmark.Point3D{{X: 1}}, Reference: 3}, wantMsg: "reference thumb_ip missing from 1 points"},
		{name: "negative reference", frame: Frame{Points: []landmark.Point3D{{X: 1}}, Reference: -1}, wantMsg: "reference point_-1"},
		{name: "NaN coordinate", frame: Frame{Points: []landmark.Point3D{{X: 1}, {X: math.NaN()}}}, wantMsg: "thumb_cmc is not finite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.frame)
			if !errors.Is(err, ErrNoFeature) {
				t.Errorf("expected ErrNoFeature, got %v", err)
			}
			if err != nil && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestVector_Flatten(t *testing.T) {
	v := Vector{Offsets: []landmark.Point3D{{X: 0, Y: 0, Z: 0}, {X: 0.1, Y: -0.2, Z: 0.3}}}

	t.Run("2-D wire form", func(t *testing.T) {
		got := v.Flatten()
		want := []float64{0, 0, 0.1, -0.2}
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Flatten()[%d] = %f, want %f", i, got[i], want[i])
			}
		}
	})

	t.Run("3-D wire form", func(t *testing.T) {
		v3 := v
		v3.Depth = true
		if got := v3.Flatten(); len(got) != 6 || got[5] != 0.3 {
			t.Errorf("Flatten() = %v", got)
		}
	})

	t.Run("MediaPipe hand flattens to 42 values", func(t *testing.T) {
		hv, err := Normalize(FromHand(landmark.LetterA()))
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if n := len(hv.Flatten()); n != 42 {
			t.Errorf("len(Flatten()) = %d, want 42", n)
		}
	})
}

func TestFrame_Empty(t *testing.T) {
	if !(Frame{}).Empty() {
		t.Error("zero frame should be empty")
	}
	if FromHand(landmark.LetterA()).Empty() {
		t.Error("hand frame should not be empty")
	}
}
