package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fabio1shot/card-price-extractor/internal/model"
)

// FileSystem caches card thumbnails on disk at {baseDir}/{cardID}/{size}.png.
type FileSystem struct {
	baseDir string
}

// NewFileSystem creates the cache, ensuring the base directory exists.
func NewFileSystem(baseDir string) (*FileSystem, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &FileSystem{baseDir: baseDir}, nil
}

// ImagePath returns the path of a card thumbnail.
func (fs *FileSystem) ImagePath(cardID int64, size model.ImageSize) string {
	return filepath.Join(fs.CardDir(cardID), string(size)+".png")
}

// CardDir returns the directory holding a card's thumbnails.
func (fs *FileSystem) CardDir(cardID int64) string {
	return filepath.Join(fs.baseDir, strconv.FormatInt(cardID, 10))
}

// Read returns the PNG bytes of a cached thumbnail.
func (fs *FileSystem) Read(cardID int64, size model.ImageSize) ([]byte, error) {
	data, err := os.ReadFile(fs.ImagePath(cardID, size))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image %d/%s: %w", cardID, size, ErrNotFound)
		}
		return nil, fmt.Errorf("reading image file: %w", err)
	}
	return data, nil
}

// Write stores a thumbnail, creating the card directory if needed.
func (fs *FileSystem) Write(cardID int64, size model.ImageSize, data []byte) error {
	if err := os.MkdirAll(fs.CardDir(cardID), 0755); err != nil {
		return fmt.Errorf("creating card directory: %w", err)
	}
	if err := os.WriteFile(fs.ImagePath(cardID, size), data, 0644); err != nil {
		return fmt.Errorf("writing image file: %w", err)
	}
	return nil
}

// Exists reports whether a thumbnail is cached.
func (fs *FileSystem) Exists(cardID int64, size model.ImageSize) bool {
	_, err := os.Stat(fs.ImagePath(cardID, size))
	return err == nil
}

// DeleteCard removes every cached size of a card.
func (fs *FileSystem) DeleteCard(cardID int64) error {
	return os.RemoveAll(fs.CardDir(cardID))
}
