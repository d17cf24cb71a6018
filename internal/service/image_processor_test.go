package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/h2non/bimg"

	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/storage"
)

// createTestPNG generates a solid-color PNG in memory.
func createTestPNG(width, height int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestProcessAll(t *testing.T) {
	fs, err := storage.NewFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("creating filesystem: %v", err)
	}

	processor := NewImageProcessor(fs)

	// Full-size card art is 421x614.
	art := createTestPNG(421, 614, color.RGBA{R: 200, G: 120, B: 40, A: 255})

	results, err := processor.ProcessAll(46986414, art)
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}

	for _, size := range model.AllImageSizes {
		if !results[size] {
			t.Errorf("expected size %s to succeed", size)
		}

		data, err := fs.Read(46986414, size)
		if err != nil {
			t.Errorf("reading size %s: %v", size, err)
			continue
		}

		got, err := bimg.NewImage(data).Size()
		if err != nil {
			t.Errorf("getting size for %s: %v", size, err)
			continue
		}

		want := model.ImageWidths[size]
		if got.Width != want {
			t.Errorf("size %s: expected width %d, got %d", size, want, got.Width)
		}
		if got.Height <= got.Width {
			t.Errorf("size %s: expected portrait aspect, got %dx%d", size, got.Width, got.Height)
		}
	}
}

func TestProcessAll_SmallSourceNotEnlarged(t *testing.T) {
	fs, err := storage.NewFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("creating filesystem: %v", err)
	}

	processor := NewImageProcessor(fs)
	art := createTestPNG(100, 146, color.RGBA{B: 255, A: 255})

	if _, err := processor.ProcessAll(1, art); err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}

	data, err := fs.Read(1, model.ImageLarge)
	if err != nil {
		t.Fatalf("reading large: %v", err)
	}
	got, err := bimg.NewImage(data).Size()
	if err != nil {
		t.Fatalf("getting size: %v", err)
	}
	if got.Width != 100 {
		t.Errorf("expected width 100, got %d", got.Width)
	}
}

func TestProcessAll_InvalidData(t *testing.T) {
	fs, err := storage.NewFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("creating filesystem: %v", err)
	}

	results, err := NewImageProcessor(fs).ProcessAll(2, []byte("not an image"))
	if err == nil {
		t.Fatal("expected error for invalid image data")
	}
	for _, size := range model.AllImageSizes {
		if results[size] {
			t.Errorf("size %s should have failed", size)
		}
		if fs.Exists(2, size) {
			t.Errorf("size %s should not be cached", size)
		}
	}
}
