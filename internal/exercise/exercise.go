// Package exercise holds the static exercise catalog: joint groups analyzed for each
// exercise, the angle that drives repetition counting, and canonical form cues.
package exercise

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ayusman/formcheck/internal/pose"
)

// ErrUnknownExercise is returned when an exercise type is not in the catalog.
var ErrUnknownExercise = errors.New("unknown exercise")

// Type identifies an exercise.
type Type string

const (
	Squat         Type = "squat"
	PushUp        Type = "pushup"
	Lunge         Type = "lunge"
	BicepCurl     Type = "bicep_curl"
	ShoulderPress Type = "shoulder_press"
)

// Range is an inclusive interval of normalized distances.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// JointGroup is a named set of landmarks scored together.
type JointGroup struct {
	Name    string  `json:"name"`
	Indices []int   `json:"indices"`
	Weight  float64 `json:"weight"`
	Optimal Range   `json:"optimal"` // expected distance between any two joints in the group
}

// Definition describes everything the analyzer needs to know about one exercise.
type Definition struct {
	Type        Type              `json:"type"`
	Name        string            `json:"name"`
	Groups      []JointGroup      `json:"groups"`
	Rep         RepSpec           `json:"rep"`
	Corrections map[string]string `json:"corrections"` // keyed by group name
}

// GenericCorrection is used when a group has no exercise-specific cue.
const GenericCorrection = "Slow down and control the movement"

var (
	leftLeg  = []int{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle}
	rightLeg = []int{pose.RightHip, pose.RightKnee, pose.RightAnkle}
	leftArm  = []int{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist}
	rightArm = []int{pose.RightShoulder, pose.RightElbow, pose.RightWrist}
	torso    = []int{pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip}
)

var catalog = map[Type]Definition{
	Squat: {
		Type: Squat,
		Name: "Squat",
		Groups: []JointGroup{
			{Name: "left_leg", Indices: leftLeg, Weight: 1.2, Optimal: Range{0.10, 0.40}},
			{Name: "right_leg", Indices: rightLeg, Weight: 1.2, Optimal: Range{0.10, 0.40}},
			{Name: "torso", Indices: torso, Weight: 1.0, Optimal: Range{0.08, 0.40}},
			{Name: "knee_tracking", Indices: []int{pose.LeftKnee, pose.RightKnee, pose.LeftAnkle, pose.RightAnkle}, Weight: 0.8, Optimal: Range{0.08, 0.35}},
		},
		Rep: RepSpec{
			Left:  [3]int{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
			Right: [3]int{pose.RightHip, pose.RightKnee, pose.RightAnkle},
			Low:   110,
			High:  150,
		},
		Corrections: map[string]string{
			"left_leg":      "Keep your weight in your heels and push your hips back",
			"right_leg":     "Keep your weight in your heels and push your hips back",
			"torso":         "Keep your chest up and your back straight",
			"knee_tracking": "Push your knees out over your toes",
		},
	},
	PushUp: {
		Type: PushUp,
		Name: "Push-up",
		Groups: []JointGroup{
			{Name: "arms", Indices: append(append([]int{}, leftArm...), rightArm...), Weight: 1.2, Optimal: Range{0.05, 0.40}},
			{Name: "core", Indices: []int{pose.LeftShoulder, pose.LeftHip, pose.LeftAnkle, pose.RightShoulder, pose.RightHip, pose.RightAnkle}, Weight: 1.3, Optimal: Range{0.10, 0.70}},
			{Name: "shoulders", Indices: []int{pose.LeftShoulder, pose.RightShoulder, pose.LeftElbow, pose.RightElbow}, Weight: 0.8, Optimal: Range{0.03, 0.35}},
		},
		Rep: RepSpec{
			Left:  [3]int{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
			Right: [3]int{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
			Low:   90,
			High:  150,
		},
		Corrections: map[string]string{
			"arms":      "Lower your chest until your elbows reach 90 degrees",
			"core":      "Keep your body in a straight line from head to heels",
			"shoulders": "Keep your elbows tucked close to your body",
		},
	},
	Lunge: {
		Type: Lunge,
		Name: "Lunge",
		Groups: []JointGroup{
			{Name: "front_leg", Indices: leftLeg, Weight: 1.3, Optimal: Range{0.08, 0.40}},
			{Name: "back_leg", Indices: rightLeg, Weight: 1.0, Optimal: Range{0.08, 0.40}},
			{Name: "torso", Indices: torso, Weight: 1.0, Optimal: Range{0.08, 0.40}},
		},
		Rep: RepSpec{
			Left:  [3]int{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
			Right: [3]int{pose.RightHip, pose.RightKnee, pose.RightAnkle},
			Low:   100,
			High:  150,
		},
		Corrections: map[string]string{
			"front_leg": "Keep your front knee behind your toes",
			"back_leg":  "Lower your back knee toward the floor",
			"torso":     "Keep your torso upright",
		},
	},
	BicepCurl: {
		Type: BicepCurl,
		Name: "Bicep curl",
		Groups: []JointGroup{
			{Name: "left_arm", Indices: leftArm, Weight: 1.2, Optimal: Range{0.05, 0.35}},
			{Name: "right_arm", Indices: rightArm, Weight: 1.2, Optimal: Range{0.05, 0.35}},
			{Name: "torso", Indices: torso, Weight: 0.8, Optimal: Range{0.08, 0.40}},
		},
		Rep: RepSpec{
			Left:  [3]int{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
			Right: [3]int{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
			Low:   50,
			High:  150,
		},
		Corrections: map[string]string{
			"left_arm":  "Keep your elbows pinned to your sides",
			"right_arm": "Keep your elbows pinned to your sides",
			"torso":     "Avoid swinging your body to lift the weight",
		},
	},
	ShoulderPress: {
		Type: ShoulderPress,
		Name: "Shoulder press",
		Groups: []JointGroup{
			{Name: "left_arm", Indices: leftArm, Weight: 1.2, Optimal: Range{0.05, 0.35}},
			{Name: "right_arm", Indices: rightArm, Weight: 1.2, Optimal: Range{0.05, 0.35}},
			{Name: "torso", Indices: torso, Weight: 1.0, Optimal: Range{0.08, 0.40}},
		},
		Rep: RepSpec{
			Left:  [3]int{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
			Right: [3]int{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
			Low:   95,
			High:  155,
		},
		Corrections: map[string]string{
			"left_arm":  "Press straight up until your arms are fully extended",
			"right_arm": "Press straight up until your arms are fully extended",
			"torso":     "Brace your core and avoid arching your lower back",
		},
	},
}

// Parse converts a user-supplied name into a Type.
func Parse(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalog[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownExercise, s)
	}
	return t, nil
}

// Lookup returns a copy of the definition for t.
func Lookup(t Type) (Definition, error) {
	d, ok := catalog[t]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownExercise, string(t))
	}
	return d.clone(), nil
}

// All returns every catalogued exercise type in name order.
func All() []Type {
	types := make([]Type, 0, len(catalog))
	for t := range catalog {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Correction returns the cue for a group, falling back to GenericCorrection.
func (d *Definition) Correction(group string) string {
	if c, ok := d.Corrections[group]; ok {
		return c
	}
	return GenericCorrection
}

func (d Definition) clone() Definition {
	out := d
	out.Groups = make([]JointGroup, len(d.Groups))
	for i, g := range d.Groups {
		g.Indices = append([]int(nil), g.Indices...)
		out.Groups[i] = g
	}
	out.Corrections = make(map[string]string, len(d.Corrections))
	for k, v := range d.Corrections {
		out.Corrections[k] = v
	}
	return out
}
