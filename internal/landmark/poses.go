package landmark

// LetterA returns a right hand signing "A": a fist with the thumb
// resting upright against the side of the index finger.
func LetterA() Hand {
	landmarks := Hand{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb alongside the index knuckle, pointing up
	landmarks.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.76, Z: -0.01}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.70, Z: -0.02}
	landmarks.Points[ThumbIP] = Point3D{X: 0.61, Y: 0.64, Z: -0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.61, Y: 0.59, Z: -0.03}

	// Fingers curled into the palm
	landmarks.Points[IndexMCP] = Point3D{X: 0.56, Y: 0.66, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.61, Z: -0.04}
	landmarks.Points[IndexDIP] = Point3D{X: 0.56, Y: 0.65, Z: -0.06}
	landmarks.Points[IndexTip] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.51, Y: 0.65, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.51, Y: 0.60, Z: -0.04}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.51, Y: 0.64, Z: -0.06}
	landmarks.Points[MiddleTip] = Point3D{X: 0.51, Y: 0.68, Z: -0.05}

	landmarks.Points[RingMCP] = Point3D{X: 0.46, Y: 0.66, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.46, Y: 0.61, Z: -0.04}
	landmarks.Points[RingDIP] = Point3D{X: 0.46, Y: 0.65, Z: -0.06}
	landmarks.Points[RingTip] = Point3D{X: 0.46, Y: 0.69, Z: -0.05}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.42, Y: 0.68, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.42, Y: 0.64, Z: -0.03}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.42, Y: 0.67, Z: -0.05}
	landmarks.Points[PinkyTip] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}

	return landmarks
}

// LetterB returns a right hand signing "B": four fingers extended
// together with the thumb folded across the palm.
func LetterB() Hand {
	landmarks := Hand{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb folded across the palm
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76, Z: -0.01}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.57, Y: 0.71, Z: -0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.53, Y: 0.68, Z: -0.05}
	landmarks.Points[ThumbTip] = Point3D{X: 0.49, Y: 0.67, Z: -0.05}

	// Fingers extended straight up, held together
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.66, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.54, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.55, Y: 0.46, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.55, Y: 0.39, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.51, Y: 0.65, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.51, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.51, Y: 0.43, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.51, Y: 0.35, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.47, Y: 0.66, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.47, Y: 0.54, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.47, Y: 0.46, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.47, Y: 0.39, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.43, Y: 0.68, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.43, Y: 0.59, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.43, Y: 0.52, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.43, Y: 0.46, Z: 0.0}

	return landmarks
}

// LetterL returns a right hand signing "L": index finger up and the
// thumb out to the side, remaining fingers curled.
func LetterL() Hand {
	landmarks := LetterA()

	// Thumb extended sideways
	landmarks.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.77, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.63, Y: 0.74, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.70, Y: 0.72, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.76, Y: 0.71, Z: 0.0}

	// Index extended upward
	landmarks.Points[IndexMCP] = Point3D{X: 0.56, Y: 0.66, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.54, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.56, Y: 0.46, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.56, Y: 0.39, Z: 0.0}

	return landmarks
}
