package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 7 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 20, G: 120, B: 220, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	return cfg.Width, cfg.Height
}

func TestValidate(t *testing.T) {
	p := NewImageProcessor()

	assert.NoError(t, p.Validate(encodePNG(t, 40, 40)))
	assert.Error(t, p.Validate([]byte("plain text payload")))

	small := &ImageProcessor{MaxSize: 16}
	assert.Error(t, small.Validate(encodePNG(t, 40, 40)))
}

func TestProcess_DownscalesLandscape(t *testing.T) {
	p := NewImageProcessor()

	renditions, err := p.Process(encodePNG(t, 3000, 1500))
	require.NoError(t, err)

	w, h := decodeDims(t, renditions.Display)
	assert.Equal(t, DisplayLongEdge, w)
	assert.LessOrEqual(t, h, DisplayLongEdge)

	tw, th := decodeDims(t, renditions.Thumbnail)
	assert.Equal(t, ThumbnailLongEdge, tw)
	assert.LessOrEqual(t, th, ThumbnailLongEdge)

	// aspect ratio preserved: 2:1 input
	assert.InDelta(t, 2.0, float64(w)/float64(h), 0.05)
}

func TestProcess_PortraitUsesHeightAsLongEdge(t *testing.T) {
	p := NewImageProcessor()

	renditions, err := p.Process(encodePNG(t, 600, 2400))
	require.NoError(t, err)

	w, h := decodeDims(t, renditions.Display)
	assert.Equal(t, DisplayLongEdge, h)
	assert.Less(t, w, h)
}

func TestProcess_SmallImageNotUpscaled(t *testing.T) {
	p := NewImageProcessor()

	renditions, err := p.Process(encodePNG(t, 200, 100))
	require.NoError(t, err)

	w, h := decodeDims(t, renditions.Display)
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)

	tw, _ := decodeDims(t, renditions.Thumbnail)
	assert.Equal(t, 200, tw)
}

func TestProcess_RejectsGarbage(t *testing.T) {
	p := NewImageProcessor()
	_, err := p.Process([]byte{0x00, 0x01, 0x02})
	assert.Error(t, err)
}
