package quality

import (
	"fmt"

	"github.com/keagan/clipsieve/internal/config"
	"github.com/keagan/clipsieve/internal/detect"
)

// ReasonCode identifies which rule decided a verdict.
type ReasonCode int

const (
	ReasonAccepted ReasonCode = iota
	ReasonFaceCount
	ReasonFaceSize
	ReasonYawExceeded
	ReasonPitchExceeded
	ReasonRollExceeded
)

// Verdict is the outcome of classifying one sampled frame. Exactly one rule
// is reported: the first one that failed, or acceptance.
type Verdict struct {
	Accepted bool
	Reason   ReasonCode

	// FaceCount is the observed confident-face count (ReasonFaceCount).
	FaceCount int
	// WidthRatio and HeightRatio are the bbox/image ratios (ReasonFaceSize).
	WidthRatio  float64
	HeightRatio float64
	// Angle is the offending pose angle and Limit the threshold it crossed
	// (yaw/pitch/roll reasons).
	Angle float64
	Limit float64
}

// String renders the verdict the way the per-frame status line reports it.
func (v Verdict) String() string {
	switch v.Reason {
	case ReasonAccepted:
		return "high quality face"
	case ReasonFaceCount:
		return fmt.Sprintf("face count %d not allowed", v.FaceCount)
	case ReasonFaceSize:
		return fmt.Sprintf("face too small (width %.2f, height %.2f)", v.WidthRatio, v.HeightRatio)
	case ReasonYawExceeded:
		return fmt.Sprintf("yaw exceeded (%.1f° > ±%.0f°)", v.Angle, v.Limit)
	case ReasonPitchExceeded:
		return fmt.Sprintf("pitch exceeded (%.1f° > ±%.0f°)", v.Angle, v.Limit)
	case ReasonRollExceeded:
		return fmt.Sprintf("roll exceeded (%.1f° > ±%.0f°)", v.Angle, v.Limit)
	}
	return "unknown"
}

// Classify evaluates one sampled frame against the composite quality
// predicate. The face list must already be filtered by detection confidence
// (detect.FilterByScore); the count rule deliberately sees only confident
// faces.
//
// Pure and stateless: safe to call concurrently.
func Classify(faces []detect.Face, imgW, imgH int, cfg config.QualityConfig) Verdict {
	// Count mismatch supersedes every other rule.
	if len(faces) != cfg.AllowedFaceCount {
		return Verdict{Reason: ReasonFaceCount, FaceCount: len(faces)}
	}

	face := faces[0]

	wRatio := float64(face.Width()) / float64(imgW)
	hRatio := float64(face.Height()) / float64(imgH)
	if wRatio < cfg.FaceSizeThreshold || hRatio < cfg.FaceSizeThreshold {
		return Verdict{Reason: ReasonFaceSize, WidthRatio: wRatio, HeightRatio: hRatio}
	}

	if yaw := face.Pose.Yaw; abs(yaw) > cfg.YawThreshold {
		return Verdict{Reason: ReasonYawExceeded, Angle: yaw, Limit: cfg.YawThreshold}
	}
	if pitch := face.Pose.Pitch; abs(pitch) > cfg.PitchThreshold {
		return Verdict{Reason: ReasonPitchExceeded, Angle: pitch, Limit: cfg.PitchThreshold}
	}
	if roll := face.Pose.Roll; abs(roll) > cfg.RollThreshold {
		return Verdict{Reason: ReasonRollExceeded, Angle: roll, Limit: cfg.RollThreshold}
	}

	return Verdict{Accepted: true, Reason: ReasonAccepted}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
