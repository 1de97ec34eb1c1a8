// Package pose defines body landmark types and the boundary validation applied to
// landmark frames produced by an external pose-estimation model.
package pose

import "math"

// Body landmark indices following the MediaPipe BlazePose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Landmark is one normalized 2D point with the model's confidence that it is visible.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Frame is a full set of body landmarks captured at one instant.
// Missing points are zero-confidence landmarks so that indices stay stable.
type Frame struct {
	Points    [NumLandmarks]Landmark `json:"points"`
	Timestamp int64                  `json:"timestamp"` // milliseconds
}

// Valid reports whether the landmark's confidence is above minConf.
func (l Landmark) Valid(minConf float64) bool {
	return l.Confidence > minConf
}

// Distance returns the Euclidean distance between two landmarks in normalized space.
func Distance(a, b Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// MeanConfidence returns the average confidence over all landmarks in the frame.
func (f *Frame) MeanConfidence() float64 {
	var sum float64
	for _, p := range f.Points {
		sum += p.Confidence
	}
	return sum / NumLandmarks
}
