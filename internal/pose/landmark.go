// Package pose holds the 33-point body landmark set and the most recent
// estimation frame.
package pose

import (
	"errors"
	"fmt"
	"strings"
)

// Landmark is one of the fixed anatomical points reported by the pose model.
// The value is the landmark's ordinal position in every frame.
type Landmark int

const (
	Nose Landmark = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// LandmarkCount is the number of landmarks in a frame.
	LandmarkCount int = iota
)

// ErrUnknownLandmark is returned when a landmark name or ordinal does not exist.
var ErrUnknownLandmark = errors.New("unknown landmark")

// The mouth corners keep the identifiers of stored configurations.
var landmarkNames = [LandmarkCount]string{
	"NOSE",
	"LEFT_EYE_INNER",
	"LEFT_EYE",
	"LEFT_EYE_OUTER",
	"RIGHT_EYE_INNER",
	"RIGHT_EYE",
	"RIGHT_EYE_OUTER",
	"LEFT_EAR",
	"RIGHT_EAR",
	"LEFT_RIGHT",
	"RIGHT_LEFT",
	"LEFT_SHOULDER",
	"RIGHT_SHOULDER",
	"LEFT_ELBOW",
	"RIGHT_ELBOW",
	"LEFT_WRIST",
	"RIGHT_WRIST",
	"LEFT_PINKY",
	"RIGHT_PINKY",
	"LEFT_INDEX",
	"RIGHT_INDEX",
	"LEFT_THUMB",
	"RIGHT_THUMB",
	"LEFT_HIP",
	"RIGHT_HIP",
	"LEFT_KNEE",
	"RIGHT_KNEE",
	"LEFT_ANKLE",
	"RIGHT_ANKLE",
	"LEFT_HEEL",
	"RIGHT_HEEL",
	"LEFT_FOOT_INDEX",
	"RIGHT_FOOT_INDEX",
}

var landmarkLabels = [LandmarkCount]string{
	"Nose",
	"Left Eye (inner)",
	"Left Eye",
	"Left Eye (outer)",
	"Right Eye (inner)",
	"Right Eye",
	"Right Eye (outer)",
	"Left Ear",
	"Right Ear",
	"Left Torso",
	"Right Torso",
	"Left Shoulder",
	"Right Shoulder",
	"Left Elbow",
	"Right Elbow",
	"Left Wrist",
	"Right Wrist",
	"Left Pinky Finger",
	"Right Pinky Finger",
	"Left Index Finger",
	"Right Index Finger",
	"Left Thumb Finger",
	"Right Thumb Finger",
	"Left Hip",
	"Right Hip",
	"Left Knee",
	"Right Knee",
	"Left Ankle",
	"Right Ankle",
	"Left Heel",
	"Right Heel",
	"Left Foot",
	"Right Foot",
}

// Landmarks returns every landmark in ordinal order.
func Landmarks() []Landmark {
	all := make([]Landmark, LandmarkCount)
	for i := range all {
		all[i] = Landmark(i)
	}
	return all
}

// Valid reports whether l is one of the 33 landmarks.
func (l Landmark) Valid() bool {
	return l >= 0 && int(l) < LandmarkCount
}

// String returns the stable identifier, e.g. "LEFT_WRIST".
func (l Landmark) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Landmark(%d)", int(l))
	}
	return landmarkNames[l]
}

// Label returns a human readable name.
func (l Landmark) Label() string {
	if !l.Valid() {
		return l.String()
	}
	return landmarkLabels[l]
}

// ParseLandmark resolves an identifier such as "LEFT_WRIST" (case-insensitive).
func ParseLandmark(name string) (Landmark, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range landmarkNames {
		if n == upper {
			return Landmark(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLandmark, name)
}

// MarshalText encodes the landmark as its identifier, which also makes it
// usable as a JSON object key.
func (l Landmark) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLandmark, int(l))
	}
	return []byte(landmarkNames[l]), nil
}

// UnmarshalText decodes an identifier produced by MarshalText.
func (l *Landmark) UnmarshalText(text []byte) error {
	parsed, err := ParseLandmark(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
