package model

// ImageSize is a thumbnail variant of the card artwork.
type ImageSize string

const (
	ImageSmall  ImageSize = "s"
	ImageMedium ImageSize = "m"
	ImageLarge  ImageSize = "l"
)

// ImageWidths maps each size to its pixel width. Card art keeps its aspect
// ratio, so only the width is fixed.
var ImageWidths = map[ImageSize]int{
	ImageSmall:  168,
	ImageMedium: 320,
	ImageLarge:  421,
}

// AllImageSizes is the ordered list of sizes for iteration.
var AllImageSizes = []ImageSize{ImageSmall, ImageMedium, ImageLarge}

// ValidImageSize checks if a string names a known size.
func ValidImageSize(s string) bool {
	_, ok := ImageWidths[ImageSize(s)]
	return ok
}
