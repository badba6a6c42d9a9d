package config

import "fmt"

// Validate checks every threshold before the frame loop starts. A config that
// fails validation aborts the run; nothing is processed.
func (c *Config) Validate() error {
	q := c.Quality
	if q.FaceSizeThreshold < 0 || q.FaceSizeThreshold > 1 {
		return fmt.Errorf("face_size_threshold %.2f out of range [0,1]", q.FaceSizeThreshold)
	}
	if q.DetScoreThreshold < 0 || q.DetScoreThreshold > 1 {
		return fmt.Errorf("det_score_threshold %.2f out of range [0,1]", q.DetScoreThreshold)
	}
	if q.AllowedFaceCount < 1 {
		return fmt.Errorf("allowed_face_count must be >= 1, got %d", q.AllowedFaceCount)
	}
	for name, deg := range map[string]float64{
		"yaw_threshold":   q.YawThreshold,
		"pitch_threshold": q.PitchThreshold,
		"roll_threshold":  q.RollThreshold,
	} {
		if deg <= 0 || deg > 180 {
			return fmt.Errorf("%s %.1f out of range (0,180]", name, deg)
		}
	}

	s := c.Sampling
	if s.SampleStride < 0 {
		return fmt.Errorf("sample_stride must be >= 0, got %d", s.SampleStride)
	}
	if s.MinClipDuration <= 0 {
		return fmt.Errorf("min_clip_duration must be > 0, got %.2f", s.MinClipDuration)
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("tolerance must be >= 0, got %d", s.Tolerance)
	}
	if s.ForcedFPS < 0 {
		return fmt.Errorf("forced_fps must be >= 0, got %.2f", s.ForcedFPS)
	}
	switch s.BoundaryMode {
	case BoundaryLastValid, BoundaryCompat:
	default:
		return fmt.Errorf("boundary_mode must be %q or %q, got %q",
			BoundaryLastValid, BoundaryCompat, s.BoundaryMode)
	}

	if c.FFmpeg.TrimTimeout <= 0 {
		return fmt.Errorf("trim_timeout must be > 0, got %d", c.FFmpeg.TrimTimeout)
	}

	return nil
}
