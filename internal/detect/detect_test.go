package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterByScore(t *testing.T) {
	faces := []Face{
		{Score: 0.95},
		{Score: 0.79},
		{Score: 0.80},
		{Score: 0.10},
	}

	filtered := FilterByScore(faces, 0.8)

	require.Len(t, filtered, 2)
	assert.Equal(t, 0.95, filtered[0].Score)
	assert.Equal(t, 0.80, filtered[1].Score, "threshold is inclusive")
}

func TestFilterByScoreKeepsInputIntact(t *testing.T) {
	faces := []Face{{Score: 0.9}, {Score: 0.1}, {Score: 0.85}}

	_ = FilterByScore(faces, 0.8)

	assert.Equal(t, 0.1, faces[1].Score, "input slice must not be reordered")
}

func TestFaceDimensions(t *testing.T) {
	f := Face{BBox: [4]int{10, 20, 110, 270}}

	assert.Equal(t, 100, f.Width())
	assert.Equal(t, 250, f.Height())
}

func TestStaticDetectorReplaysScript(t *testing.T) {
	det := &StaticDetector{Frames: [][]Face{
		{{Score: 0.9}},
		nil,
	}}

	faces, err := det.Detect(context.Background(), nil, 10, 10)
	require.NoError(t, err)
	assert.Len(t, faces, 1)

	faces, err = det.Detect(context.Background(), nil, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, faces)

	// Past the script everything is faceless.
	faces, err = det.Detect(context.Background(), nil, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, faces)
}
