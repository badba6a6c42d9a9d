package detect

import "context"

// Pose holds head orientation angles in degrees, signed, relative to a
// camera-facing neutral.
type Pose struct {
	Pitch float64
	Yaw   float64
	Roll  float64
}

// Face is a single detection: axis-aligned pixel-space box, head pose, and
// the detector's confidence that the box contains a genuine face.
type Face struct {
	BBox  [4]int // x1, y1, x2, y2
	Pose  Pose
	Score float64 // 0.0 - 1.0
}

// Width returns the bounding box width in pixels.
func (f Face) Width() int {
	return f.BBox[2] - f.BBox[0]
}

// Height returns the bounding box height in pixels.
func (f Face) Height() int {
	return f.BBox[3] - f.BBox[1]
}

// Detector analyzes a decoded frame and returns detected faces.
// Returns an empty slice if no faces are found.
type Detector interface {
	// Detect takes a packed BGR24 pixel buffer with its dimensions.
	Detect(ctx context.Context, frame []byte, width, height int) ([]Face, error)

	// Close releases any resources held by the detector.
	Close() error
}

// FilterByScore drops detections below the confidence floor. The quality
// predicate counts only faces that survive this filter, so a low-confidence
// extra face never reaches the face-count rule.
func FilterByScore(faces []Face, min float64) []Face {
	filtered := faces[:0:0]
	for _, f := range faces {
		if f.Score >= min {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// StaticDetector replays a scripted sequence of detections, one entry per
// Detect call. Used in tests and dry runs.
type StaticDetector struct {
	Frames [][]Face
	calls  int
}

func (s *StaticDetector) Detect(ctx context.Context, frame []byte, width, height int) ([]Face, error) {
	if s.calls >= len(s.Frames) {
		return nil, nil
	}
	faces := s.Frames[s.calls]
	s.calls++
	return faces, nil
}

func (s *StaticDetector) Close() error { return nil }
