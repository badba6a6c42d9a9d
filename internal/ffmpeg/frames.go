package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// FrameReader streams decoded frames from a video as packed BGR24 buffers,
// one frame per Next call, in presentation order.
type FrameReader struct {
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	frameSize int
	width     int
	height    int
}

// OpenFrameReader starts an ffmpeg decode of the whole video to raw BGR24
// on stdout. Width and height normally come from ProbeVideo.
func (e *Executor) OpenFrameReader(ctx context.Context, input string, width, height int) (*FrameReader, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start frame decode: %w", err)
	}

	e.logger.Debug().
		Str("input", input).
		Int("width", width).
		Int("height", height).
		Msg("frame reader started")

	return &FrameReader{
		cmd:       cmd,
		stdout:    stdout,
		frameSize: width * height * 3,
		width:     width,
		height:    height,
	}, nil
}

// Next returns the next decoded frame. The returned buffer is reused by
// subsequent calls only if the caller hands it back; each call allocates.
// io.EOF signals a clean end of stream.
func (r *FrameReader) Next() ([]byte, error) {
	buf := make([]byte, r.frameSize)
	_, err := io.ReadFull(r.stdout, buf)
	if err == io.ErrUnexpectedEOF {
		// Trailing partial frame; treat as end of stream.
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Close stops the decode and reaps the process.
func (r *FrameReader) Close() error {
	r.stdout.Close()
	// Wait returns an error when we close the pipe mid-stream; the decode
	// already served its purpose by then.
	_ = r.cmd.Wait()
	return nil
}
