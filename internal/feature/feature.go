// Package feature turns raw hand landmark frames into translation-invariant
// feature vectors for the sign classifier.
package feature

import (
	"errors"
	"fmt"

	"github.com/ayusman/sign2me/internal/landmark"
)

// ErrNoFeature means the frame carried nothing to classify. Callers skip the tick.
var ErrNoFeature = errors.New("no feature")

// Frame is one perception tick: ordered landmarks plus the index of the
// reference point every offset is measured from.
type Frame struct {
	Points    []landmark.Point3D `json:"points"`
	Reference int                `json:"reference"`
	// Depth includes z in the flattened vector.
	Depth bool `json:"depth,omitempty"`
}

// Empty reports whether no hand was detected in the frame.
func (f Frame) Empty() bool {
	return len(f.Points) == 0
}

// FromHand builds a frame from detector output using the wrist as reference.
func FromHand(h landmark.Hand) Frame {
	points := make([]landmark.Point3D, landmark.NumLandmarks)
	copy(points, h.Points[:])
	return Frame{Points: points, Reference: landmark.Wrist}
}

// Vector holds each landmark's offset from the reference point.
type Vector struct {
	Offsets []landmark.Point3D
	Depth   bool
}

// Len returns the number of landmarks in the vector.
func (v Vector) Len() int {
	return len(v.Offsets)
}

// Flatten returns the wire form: x,y per landmark, or x,y,z when Depth is set.
func (v Vector) Flatten() []float64 {
	stride := 2
	if v.Depth {
		stride = 3
	}
	out := make([]float64, 0, len(v.Offsets)*stride)
	for _, p := range v.Offsets {
		out = append(out, p.X, p.Y)
		if v.Depth {
			out = append(out, p.Z)
		}
	}
	return out
}

// Normalize translates every landmark so the reference point becomes the origin.
// It returns an error wrapping ErrNoFeature for an empty frame, a missing
// reference point or non-finite coordinates.
func Normalize(frame Frame) (Vector, error) {
	if frame.Empty() {
		return Vector{}, ErrNoFeature
	}
	if frame.Reference < 0 || frame.Reference >= len(frame.Points) {
		return Vector{}, fmt.Errorf("%w: reference %s missing from %d points",
			ErrNoFeature, landmark.Name(frame.Reference), len(frame.Points))
	}

	ref := frame.Points[frame.Reference]
	offsets := make([]landmark.Point3D, len(frame.Points))
	for i, p := range frame.Points {
		if !p.IsFinite() {
			return Vector{}, fmt.Errorf("%w: %s is not finite", ErrNoFeature, landmark.Name(i))
		}
		offsets[i] = p.Sub(ref)
	}

	return Vector{Offsets: offsets, Depth: frame.Depth}, nil
}
