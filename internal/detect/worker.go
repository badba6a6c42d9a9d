package detect

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// Worker drives an InsightFace analysis process over a binary pipe protocol.
// Frames go in over stdin, detections come back over a dedicated side-channel
// pipe (FD 3 in the child) so model chatter on stdout never corrupts the data
// stream.
//
// Request:  [width:u32][height:u32][len:u32][bgr24 bytes]
// Response: [status:u8][count:u32] then per face
//           [bbox:4*i32][pitch,yaw,roll:3*f32][score:f32]
// All integers big-endian. A nonzero status means the worker failed to
// analyze the frame; the body carries no faces in that case.
type Worker struct {
	logger   zerolog.Logger
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	dataPipe io.ReadCloser

	mu sync.Mutex
}

// NewWorker launches the detection process and wires up its pipes.
func NewWorker(logger zerolog.Logger, python, script string) (*Worker, error) {
	cmd := exec.Command(python, "-u", script)
	cmd.Stderr = os.Stderr

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// The write end shows up as FD 3 in the child.
	cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("detector worker failed to start: %w", err)
	}

	// Close the write end in the parent so only the child holds it; reads
	// then fail fast if the worker dies.
	w.Close()

	return &Worker{
		logger:   logger.With().Str("component", "detector").Logger(),
		cmd:      cmd,
		stdin:    stdin,
		dataPipe: r,
	}, nil
}

// Detect sends one frame to the worker and decodes the detections.
func (w *Worker) Detect(ctx context.Context, frame []byte, width, height int) ([]Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := binary.Write(w.stdin, binary.BigEndian, uint32(width)); err != nil {
		return nil, fmt.Errorf("write frame header: %w", err)
	}
	if err := binary.Write(w.stdin, binary.BigEndian, uint32(height)); err != nil {
		return nil, fmt.Errorf("write frame header: %w", err)
	}
	if err := binary.Write(w.stdin, binary.BigEndian, uint32(len(frame))); err != nil {
		return nil, fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.stdin.Write(frame); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	return readResponse(w.dataPipe)
}

func readResponse(r io.Reader) ([]Face, error) {
	var status uint8
	if err := binary.Read(r, binary.BigEndian, &status); err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	if status != 0 {
		return nil, fmt.Errorf("worker reported analysis failure (status %d)", status)
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("read face count: %w", err)
	}

	faces := make([]Face, 0, count)
	for i := uint32(0); i < count; i++ {
		var box [4]int32
		if err := binary.Read(r, binary.BigEndian, &box); err != nil {
			return nil, fmt.Errorf("read bbox: %w", err)
		}
		var pose [3]float32
		if err := binary.Read(r, binary.BigEndian, &pose); err != nil {
			return nil, fmt.Errorf("read pose: %w", err)
		}
		var score float32
		if err := binary.Read(r, binary.BigEndian, &score); err != nil {
			return nil, fmt.Errorf("read score: %w", err)
		}

		faces = append(faces, Face{
			BBox:  [4]int{int(box[0]), int(box[1]), int(box[2]), int(box[3])},
			Pose:  Pose{Pitch: float64(pose[0]), Yaw: float64(pose[1]), Roll: float64(pose[2])},
			Score: float64(score),
		})
	}

	return faces, nil
}

// Close shuts the worker down and reaps the process.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stdin.Close()
	w.dataPipe.Close()
	if w.cmd != nil {
		return w.cmd.Wait()
	}
	return nil
}
