package posemidi

import (
	"github.com/leandrodaf/posemidi/internal/mapper"
	"github.com/leandrodaf/posemidi/internal/pose"
	"github.com/leandrodaf/posemidi/internal/tracking"
)

// Pose and tracking types used by the Runner API.
type (
	// Landmark is one of the 33 body points, by ordinal.
	Landmark = pose.Landmark
	// Point is a normalised image coordinate, origin top-left.
	Point = pose.Point
	// Snapshot is one estimation frame indexed by Landmark.
	Snapshot = pose.Snapshot
	// Mode selects how a landmark position becomes notes.
	Mode = mapper.Mode
	// TrackingEntry is the configuration of one landmark.
	TrackingEntry = tracking.Entry
	// TrackingPatch is a partial TrackingEntry update; nil fields are unchanged.
	TrackingPatch = tracking.Patch
)

// LandmarkCount is the number of landmarks in a frame.
const LandmarkCount = pose.LandmarkCount

const (
	Nose           = pose.Nose
	LeftEyeInner   = pose.LeftEyeInner
	LeftEye        = pose.LeftEye
	LeftEyeOuter   = pose.LeftEyeOuter
	RightEyeInner  = pose.RightEyeInner
	RightEye       = pose.RightEye
	RightEyeOuter  = pose.RightEyeOuter
	LeftEar        = pose.LeftEar
	RightEar       = pose.RightEar
	MouthLeft      = pose.MouthLeft
	MouthRight     = pose.MouthRight
	LeftShoulder   = pose.LeftShoulder
	RightShoulder  = pose.RightShoulder
	LeftElbow      = pose.LeftElbow
	RightElbow     = pose.RightElbow
	LeftWrist      = pose.LeftWrist
	RightWrist     = pose.RightWrist
	LeftPinky      = pose.LeftPinky
	RightPinky     = pose.RightPinky
	LeftIndex      = pose.LeftIndex
	RightIndex     = pose.RightIndex
	LeftThumb      = pose.LeftThumb
	RightThumb     = pose.RightThumb
	LeftHip        = pose.LeftHip
	RightHip       = pose.RightHip
	LeftKnee       = pose.LeftKnee
	RightKnee      = pose.RightKnee
	LeftAnkle      = pose.LeftAnkle
	RightAnkle     = pose.RightAnkle
	LeftHeel       = pose.LeftHeel
	RightHeel      = pose.RightHeel
	LeftFootIndex  = pose.LeftFootIndex
	RightFootIndex = pose.RightFootIndex
)

const (
	ModeNone                     = mapper.None
	ModeX                        = mapper.X
	ModeXInverted                = mapper.XInverted
	ModeY                        = mapper.Y
	ModeYInverted                = mapper.YInverted
	ModeXY                       = mapper.XY
	ModeXInvertedY               = mapper.XInvertedY
	ModeXYInverted               = mapper.XYInverted
	ModeXInvertedYInverted       = mapper.XInvertedYInverted
	ModeXYDouble                 = mapper.XYDouble
	ModeXInvertedYDouble         = mapper.XInvertedYDouble
	ModeXYInvertedDouble         = mapper.XYInvertedDouble
	ModeXInvertedYInvertedDouble = mapper.XInvertedYInvertedDouble
)

var (
	// ErrUnknownLandmark is returned for a landmark name that does not exist.
	ErrUnknownLandmark = pose.ErrUnknownLandmark
	// ErrFrameTooLong is returned by DecodeFrame for more than LandmarkCount entries.
	ErrFrameTooLong = pose.ErrFrameTooLong
	// ErrInvalidEntry wraps every rejected tracking update.
	ErrInvalidEntry = tracking.ErrInvalidEntry
	// ErrInvalidThreshold is returned for a visibility threshold outside [0, 1].
	ErrInvalidThreshold = tracking.ErrInvalidThreshold
)

// DecodeFrame parses a frame encoded as a JSON array aligned to the landmark
// ordinals. Entries may be null.
func DecodeFrame(data []byte) (Snapshot, error) {
	return pose.DecodeFrame(data)
}

// ParseLandmark returns the landmark with identifier name, e.g. "LEFT_WRIST".
func ParseLandmark(name string) (Landmark, error) {
	return pose.ParseLandmark(name)
}

// Landmarks returns every landmark in ordinal order.
func Landmarks() []Landmark {
	return pose.Landmarks()
}

// Modes returns every mapping mode.
func Modes() []Mode {
	return mapper.Modes()
}

// DefaultTrackingEntry returns the configuration of an unassigned landmark.
func DefaultTrackingEntry() TrackingEntry {
	return tracking.DefaultEntry()
}
