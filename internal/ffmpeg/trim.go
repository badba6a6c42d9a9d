package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/keagan/clipsieve/pkg/util"
)

// TrimArgs builds the lossless extraction command line: seek before the
// input, absolute end boundary, stream copy for both video and audio so
// nothing is re-encoded.
func TrimArgs(source string, start, end time.Duration, dest string) []string {
	return []string{
		"-ss", util.FormatSeconds(start),
		"-i", source,
		"-to", util.FormatSeconds(end),
		"-c:v", "copy",
		"-c:a", "copy",
		dest,
	}
}

// Trim extracts [start, end) from source into dest as a stream copy,
// overwriting any existing file. Satisfies the clips.Trimmer contract.
func (e *Executor) Trim(ctx context.Context, source string, start, end time.Duration, dest string) error {
	if end <= start {
		return fmt.Errorf("invalid trim range: end %v must be after start %v", end, start)
	}

	e.logger.Info().
		Str("source", source).
		Str("dest", dest).
		Dur("start", start).
		Dur("end", end).
		Msg("extracting clip")

	opts := RunOptions{
		Args: TrimArgs(source, start, end, dest),
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("trim")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("clip extraction failed: %w", err)
	}

	return nil
}
