package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
)

const (
	DisplayLongEdge   = 1200
	ThumbnailLongEdge = 300

	displayQuality   = 85
	thumbnailQuality = 75
)

// Renditions holds the two outputs of media post-processing.
type Renditions struct {
	Display   []byte
	Thumbnail []byte
}

type ImageProcessor struct {
	MaxSize int64 // bytes
}

func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{MaxSize: 10 * 1024 * 1024} // 10MB
}

// Validate checks the payload decodes as a supported image and stays under
// the size cap.
func (p *ImageProcessor) Validate(data []byte) error {
	if int64(len(data)) > p.MaxSize {
		return fmt.Errorf("image exceeds %dMB", p.MaxSize/(1024*1024))
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("not an image: %w", err)
	}
	return nil
}

// Process produces the display and thumbnail renditions as JPEG.
func (p *ImageProcessor) Process(data []byte) (*Renditions, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot decode image: %w", err)
	}

	display, err := encodeFit(img, DisplayLongEdge, displayQuality)
	if err != nil {
		return nil, fmt.Errorf("cannot encode display rendition: %w", err)
	}
	thumbnail, err := encodeFit(img, ThumbnailLongEdge, thumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("cannot encode thumbnail rendition: %w", err)
	}

	return &Renditions{Display: display, Thumbnail: thumbnail}, nil
}

func encodeFit(img image.Image, longEdge, quality int) ([]byte, error) {
	resized := imaging.Fit(img, longEdge, longEdge, imaging.Lanczos)
	b := new(bytes.Buffer)
	if err := jpeg.Encode(b, resized, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
