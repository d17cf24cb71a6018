// Package service holds the card lookup pipeline: single-card search, batch
// runs and card thumbnails.
package service

import (
	"fmt"
	"strings"

	"github.com/h2non/bimg"

	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/storage"
)

// ImageProcessor turns downloaded card art into PNG thumbnails.
// bimg wraps libvips, which must be installed on the host.
type ImageProcessor struct {
	fs *storage.FileSystem
}

// NewImageProcessor creates a new ImageProcessor.
func NewImageProcessor(fs *storage.FileSystem) *ImageProcessor {
	return &ImageProcessor{fs: fs}
}

// ProcessAll resizes imageData (any format libvips reads) to every thumbnail
// width and stores the results. Every size is attempted; the returned map
// says which ones were written.
func (p *ImageProcessor) ProcessAll(cardID int64, imageData []byte) (map[model.ImageSize]bool, error) {
	results := make(map[model.ImageSize]bool)
	var errs []string

	for _, size := range model.AllImageSizes {
		resized, err := resizeToWidth(imageData, model.ImageWidths[size])
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", size, err))
			results[size] = false
			continue
		}

		if err := p.fs.Write(cardID, size, resized); err != nil {
			errs = append(errs, fmt.Sprintf("%s write: %v", size, err))
			results[size] = false
			continue
		}

		results[size] = true
	}

	if len(errs) > 0 {
		return results, fmt.Errorf("processing errors: %s", strings.Join(errs, "; "))
	}

	return results, nil
}

// resizeToWidth scales an image to the given width, keeping its aspect ratio.
// Smaller sources are not enlarged.
func resizeToWidth(imageData []byte, width int) ([]byte, error) {
	img := bimg.NewImage(imageData)

	size, err := img.Size()
	if err != nil {
		return nil, fmt.Errorf("reading image size: %w", err)
	}
	if size.Width < width {
		width = size.Width
	}

	resized, err := img.Process(bimg.Options{
		Width:          width,
		Type:           bimg.PNG,
		Interpretation: bimg.InterpretationSRGB,
	})
	if err != nil {
		return nil, fmt.Errorf("resizing to %dpx: %w", width, err)
	}

	return resized, nil
}
