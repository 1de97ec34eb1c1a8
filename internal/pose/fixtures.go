package pose

// Reference poses used by tests, the mock landmarker and the replay command.
// Coordinates are normalized image space with Y growing downward.

// StandingPose returns a frontal pose of a person standing upright, arms at the sides.
func StandingPose() Frame {
	f := Frame{}
	set := func(i int, x, y float64) {
		f.Points[i] = Landmark{X: x, Y: y, Confidence: 0.95}
	}

	set(Nose, 0.50, 0.12)
	set(LeftEyeInner, 0.49, 0.11)
	set(LeftEye, 0.48, 0.11)
	set(LeftEyeOuter, 0.47, 0.11)
	set(RightEyeInner, 0.51, 0.11)
	set(RightEye, 0.52, 0.11)
	set(RightEyeOuter, 0.53, 0.11)
	set(LeftEar, 0.46, 0.12)
	set(RightEar, 0.54, 0.12)
	set(MouthLeft, 0.49, 0.14)
	set(MouthRight, 0.51, 0.14)

	set(LeftShoulder, 0.42, 0.30)
	set(RightShoulder, 0.58, 0.30)
	set(LeftElbow, 0.40, 0.44)
	set(RightElbow, 0.60, 0.44)
	set(LeftWrist, 0.40, 0.57)
	set(RightWrist, 0.60, 0.57)
	set(LeftPinky, 0.40, 0.60)
	set(RightPinky, 0.60, 0.60)
	set(LeftIndex, 0.41, 0.61)
	set(RightIndex, 0.59, 0.61)
	set(LeftThumb, 0.41, 0.59)
	set(RightThumb, 0.59, 0.59)

	set(LeftHip, 0.45, 0.55)
	set(RightHip, 0.55, 0.55)
	set(LeftKnee, 0.45, 0.72)
	set(RightKnee, 0.55, 0.72)
	set(LeftAnkle, 0.45, 0.90)
	set(RightAnkle, 0.55, 0.90)
	set(LeftHeel, 0.45, 0.92)
	set(RightHeel, 0.55, 0.92)
	set(LeftFootIndex, 0.43, 0.94)
	set(RightFootIndex, 0.57, 0.94)

	return f
}

// SquatBottomPose returns the standing pose with hips dropped and knees driven
// out, giving an interior knee angle of roughly 100 degrees.
func SquatBottomPose() Frame {
	f := StandingPose()
	move := func(i int, x, y float64) {
		f.Points[i].X = x
		f.Points[i].Y = y
	}

	// Upper body drops with the hips.
	for i := Nose; i <= RightThumb; i++ {
		f.Points[i].Y += 0.13
	}
	move(LeftHip, 0.47, 0.68)
	move(RightHip, 0.53, 0.68)
	move(LeftKnee, 0.36, 0.75)
	move(RightKnee, 0.64, 0.75)

	return f
}

// Blend linearly interpolates every landmark between a and b. t=0 yields a, t=1 yields b.
// Confidence is taken as the lower of the two inputs.
func Blend(a, b Frame, t float64) Frame {
	out := Frame{Timestamp: a.Timestamp + int64(float64(b.Timestamp-a.Timestamp)*t)}
	for i := range out.Points {
		pa, pb := a.Points[i], b.Points[i]
		out.Points[i] = Landmark{
			X:          pa.X + (pb.X-pa.X)*t,
			Y:          pa.Y + (pb.Y-pa.Y)*t,
			Confidence: min(pa.Confidence, pb.Confidence),
		}
	}
	return out
}

// Landmarks returns the frame's points as a slice.
func (f Frame) Landmarks() []Landmark {
	out := make([]Landmark, NumLandmarks)
	copy(out, f.Points[:])
	return out
}
